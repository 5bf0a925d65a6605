package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelpExitsBeforeConfiguration(t *testing.T) {
	t.Setenv("TRENDYOL_SELLER_ID", "")

	assert.Equal(t, 0, run([]string{"-h"}))
	assert.Equal(t, 0, run([]string{"-help"}))
}

func TestUnknownFlagIsUsageError(t *testing.T) {
	t.Setenv("TRENDYOL_SELLER_ID", "")

	assert.Equal(t, 2, run([]string{"-no-such-flag"}))
	assert.Equal(t, 2, run([]string{"-archived=maybe"}))
}

func TestMissingConfigurationFails(t *testing.T) {
	t.Setenv("TRENDYOL_SELLER_ID", "")

	assert.Equal(t, 1, run([]string{"-dry-run"}))
}

func TestNonPositivePageSizeFails(t *testing.T) {
	t.Setenv("TRENDYOL_SELLER_ID", "42")
	t.Setenv("TRENDYOL_API_TOKEN", "dG9rZW4=")
	t.Setenv("DATABASE_URL", "postgres://sync@localhost/trendyol")

	assert.Equal(t, 1, run([]string{"-dry-run", "-page-size", "0"}))
}
