package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslations(t *testing.T) {
	require.NoError(t, Initialize())

	assert.Equal(t, "Application not found", T("en", KeyApplicationNotFound))
	assert.Equal(t, "找不到申請案件", T("zh_TW", KeyApplicationNotFound))
	assert.Equal(t, "Application moved to under_review", T("en", KeyTransitionApplied, "under_review"))

	// Unknown language falls back to English, unknown key to itself.
	assert.Equal(t, "Application not found", T("fr", KeyApplicationNotFound))
	assert.Equal(t, "no.such.key", T("en", "no.such.key"))

	assert.ElementsMatch(t, []string{"en", "zh_TW"}, GetSupportedLanguages())
}
