package testutil

import (
	"testing"
	"time"

	"github.com/vapecity/vapecity-api/config"
	"github.com/vapecity/vapecity-api/middleware"
)

// AdminAuthHeader returns an "Authorization" header value carrying a fresh admin token
func AdminAuthHeader(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, _, err := middleware.IssueAdminToken(cfg, time.Now())
	if err != nil {
		t.Fatalf("Failed to issue admin token: %v", err)
	}
	return "Bearer " + token
}
