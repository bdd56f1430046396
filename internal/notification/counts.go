package notification

import (
	"github.com/frahmantamala/claim-workflow/internal/claim"
	"github.com/frahmantamala/claim-workflow/internal/user"
)

// Counter answers the live claim counts a digest is built from. The
// implementations query by state together with the recipient's relation
// to the claim: assigned finance admin, assigned manager or submitter.
type Counter interface {
	CountForFinanceAdmin(uid string, state claim.State) (int64, error)
	CountForManager(uid string, state claim.State) (int64, error)
	CountForSubmitter(uid string, state claim.State) (int64, error)
	CountInStateExcluding(state claim.State, excludeUID string) (int64, error)
}

// DigestCounts is the per-recipient summary in a digest. Which fields are
// populated depends on the recipient's roles; unused fields stay zero.
type DigestCounts struct {
	ToCheck    int64
	ToSign     int64
	ToAssign   int64
	OwnToSign  int64
	OwnToPrint int64
}

// CountsFor computes the digest for one recipient. Approver roles layer
// their review counts on top of the submitter counts everybody gets;
// finance admins additionally see the shared to-assign pool, minus the
// claims they submitted themselves, which already appear in their own
// counts.
func CountsFor(u *user.User, counter Counter) (DigestCounts, error) {
	counts, err := ownCounts(u.UID, counter)
	if err != nil {
		return DigestCounts{}, err
	}

	switch {
	case u.IsFinanceAdmin():
		counts.ToCheck, err = counter.CountForFinanceAdmin(u.UID, claim.StateAssignedToFinanceAdmin)
		if err != nil {
			return DigestCounts{}, err
		}
		counts.ToSign, err = counter.CountForFinanceAdmin(u.UID, claim.StateToSignByFinanceAdmin)
		if err != nil {
			return DigestCounts{}, err
		}
		counts.ToAssign, err = counter.CountInStateExcluding(claim.StateToBeAssigned, u.UID)
		if err != nil {
			return DigestCounts{}, err
		}
	case u.IsManagerRole():
		counts.ToCheck, err = counter.CountForManager(u.UID, claim.StateAssignedToProf)
		if err != nil {
			return DigestCounts{}, err
		}
		counts.ToSign, err = counter.CountForManager(u.UID, claim.StateToSignByProf)
		if err != nil {
			return DigestCounts{}, err
		}
	}

	return counts, nil
}

func ownCounts(uid string, counter Counter) (DigestCounts, error) {
	var counts DigestCounts
	var err error

	counts.OwnToSign, err = counter.CountForSubmitter(uid, claim.StateToSignByUser)
	if err != nil {
		return DigestCounts{}, err
	}
	counts.OwnToPrint, err = counter.CountForSubmitter(uid, claim.StateSigned)
	if err != nil {
		return DigestCounts{}, err
	}
	return counts, nil
}
