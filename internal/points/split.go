package points

import "sort"

// UserBalance pairs an account with its current balance, as input to
// the split planning helpers.
type UserBalance struct {
	UserID  int64 `json:"user_id"`
	Balance int   `json:"balance"`
}

// SplitEvenly plans contributions for cost across the users with a
// nonzero balance: floor division for the base share, then the
// remainder one point at a time to users (in the given order) that
// still have headroom. The result feeds the exact-sum validation in
// RedeemSplit; if the group's combined balance cannot cover cost, the
// plan comes up short and validation rejects it.
func SplitEvenly(cost int, users []UserBalance) []Contribution {
	var eligible []UserBalance
	for _, u := range users {
		if u.Balance > 0 {
			eligible = append(eligible, u)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	share := cost / len(eligible)
	contributions := make([]Contribution, len(eligible))
	assigned := 0
	for i, u := range eligible {
		p := share
		if p > u.Balance {
			p = u.Balance
		}
		contributions[i] = Contribution{UserID: u.UserID, Points: p}
		assigned += p
	}

	remainder := cost - assigned
	for remainder > 0 {
		progressed := false
		for i := range contributions {
			if remainder == 0 {
				break
			}
			if contributions[i].Points < eligible[i].Balance {
				contributions[i].Points++
				remainder--
				progressed = true
			}
		}
		if !progressed {
			break // everyone is at their balance cap
		}
	}
	return contributions
}

// MaxFromEach plans contributions by draining the richest balances
// first: sort descending by balance and greedily take
// min(balance, remaining) until the cost is covered.
func MaxFromEach(cost int, users []UserBalance) []Contribution {
	ordered := make([]UserBalance, len(users))
	copy(ordered, users)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Balance > ordered[j].Balance })

	var contributions []Contribution
	remaining := cost
	for _, u := range ordered {
		if remaining == 0 {
			break
		}
		take := u.Balance
		if take > remaining {
			take = remaining
		}
		if take <= 0 {
			continue
		}
		contributions = append(contributions, Contribution{UserID: u.UserID, Points: take})
		remaining -= take
	}
	return contributions
}
