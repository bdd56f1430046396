package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/claim-workflow/internal/user"
)

// seedCmd loads a small directory covering every routing role, enough to
// walk a claim through the full signing chain locally.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the user directory with one account per workflow role for development and testing.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			if err := db.Exec("DELETE FROM users").Error; err != nil {
				log.Fatalf("failed to clear users: %v", err)
			}
			fmt.Println("Cleared existing users")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash seed password: %v", err)
		}

		seedUser(db, string(hash), "junior@example.com", "Junior", "Researcher", nil, user.RoleUser)

		seeded := []struct {
			email     string
			firstName string
			lastName  string
			roles     []user.Role
		}{
			{"prof@example.com", "Petra", "Prof", []user.Role{user.RoleUser, user.RoleProf}},
			{"manager@example.com", "Mika", "Manager", []user.Role{user.RoleUser, user.RoleDepartmentManager}},
			{"head@example.com", "Hanna", "Head", []user.Role{user.RoleUser, user.RoleHeadOfInstitute}},
			{"finance@example.com", "Finn", "Finance", []user.Role{user.RoleUser, user.RoleFinanceAdmin}},
		}

		var managerUID string
		for _, s := range seeded {
			uid := seedUser(db, string(hash), s.email, s.firstName, s.lastName, nil, s.roles...)
			if user.HasRole(s.roles, user.RoleProf) {
				managerUID = uid
			}
		}

		if managerUID != "" {
			seedUser(db, string(hash), "student@example.com", "Sam", "Student", &managerUID, user.RoleUser)
		}

		fmt.Println("User directory seeded")
	},
}

func seedUser(db *gorm.DB, passwordHash, email, firstName, lastName string, managerUID *string, roles ...user.Role) string {
	var existing user.User
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		fmt.Printf("user %s already exists\n", email)
		return existing.UID
	}

	u := &user.User{
		UID:          uuid.NewString(),
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		ManagerUID:   managerUID,
		IsActive:     true,
	}
	u.SetRoles(roles)

	if err := db.Create(u).Error; err != nil {
		log.Fatalf("failed to seed user %s: %v", email, err)
	}

	fmt.Printf("Seeded user %s (%s)\n", email, u.RolesCSV)
	return u.UID
}
