package repository

import (
	"regexp"
	"strings"
	"testing"
)

// squash collapses whitespace so the checks survive query reformatting.
func squash(q string) string {
	return strings.TrimSpace(regexp.MustCompile(`\s+`).ReplaceAllString(q, " "))
}

func TestClaimDueQuery(t *testing.T) {
	q := squash(claimDueQuery)
	for _, want := range []string{
		"FOR UPDATE SKIP LOCKED",
		"(status = $1 AND scheduled_for <= $3)",
		"OR (status = $2 AND lease_expires_at < $3)",
		"ORDER BY scheduled_for ASC, id ASC",
		"LIMIT $4",
		"SET status = $2, lease_owner = $5, lease_expires_at = $6",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("claim query is missing %q:\n%s", want, q)
		}
	}
}

func TestOutcomeQueriesRequireLeaseOwner(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"completed", markCompletedQuery, "WHERE id = $3 AND lease_owner = $4 AND status = $5"},
		{"failed", markFailedQuery, "WHERE id = $4 AND lease_owner = $5 AND status = $6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := squash(tt.query)
			if !strings.Contains(q, tt.want) {
				t.Fatalf("query is missing %q:\n%s", tt.want, q)
			}
			if !strings.Contains(q, "lease_owner = NULL, lease_expires_at = NULL") {
				t.Fatalf("query does not release the lease:\n%s", q)
			}
		})
	}
}

func TestUpsertLeavesProcessingRowsAlone(t *testing.T) {
	q := squash(upsertScheduleQuery)
	for _, want := range []string{
		"ON CONFLICT (post_id) DO UPDATE",
		"WHERE schedules.status <> $5",
		"RETURNING id, (xmax = 0)",
	} {
		if !strings.Contains(q, want) {
			t.Fatalf("upsert query is missing %q:\n%s", want, q)
		}
	}
}

func TestUpdatePendingQuery(t *testing.T) {
	q := squash(updatePendingQuery)
	if !strings.Contains(q, "WHERE id = $2 AND status = $3") {
		t.Fatalf("update query is not limited to pending rows:\n%s", q)
	}
	if !strings.Contains(q, "scheduled_for = COALESCE($1, scheduled_for)") {
		t.Fatalf("update query does not keep the time when none is given:\n%s", q)
	}
}
