package domain

// TeamDetail holds the fully fetched membership and repository rows for
// one team. A TeamDetail exists only when both fetches succeeded.
type TeamDetail struct {
	Team         Team
	Memberships  []TeamMembership
	Repositories []TeamRepository
}

// TeamResult is the tagged outcome of one team's detail fetch: exactly one
// of Detail or Err is set.
type TeamResult struct {
	Team   Team
	Detail *TeamDetail
	Err    *FetchError
}

// Failed reports whether the team's fetch ended in an error.
func (r TeamResult) Failed() bool {
	return r.Err != nil
}
