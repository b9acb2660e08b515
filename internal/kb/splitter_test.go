package kb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawExport = `Some preamble the export tool adds.

Article 1: Title: Resetting Your Password Content: Use the forgot password link on the login page.

Article 2: Title: Card Declined / Payment Errors Content: Check the card details and contact your bank.
`

func TestSplitArticles(t *testing.T) {
	articles := SplitArticles(rawExport)
	require.Len(t, articles, 2)

	assert.Equal(t, 1, articles[0].Index)
	assert.Equal(t, "Resetting Your Password", articles[0].Title)
	assert.Contains(t, articles[0].Content, "forgot password link")
	assert.NotContains(t, articles[0].Content, "preamble")
	assert.NotContains(t, articles[0].Content, "Card Declined")

	assert.Equal(t, 2, articles[1].Index)
	assert.Equal(t, "Card Declined / Payment Errors", articles[1].Title)
}

func TestSplitArticles_NoHeaders(t *testing.T) {
	assert.Nil(t, SplitArticles("just some text without any structure"))
}

func TestSplitArticles_MissingTitle(t *testing.T) {
	articles := SplitArticles("Article 1: Title: orphan header with no content marker")
	require.Len(t, articles, 1)
	assert.Empty(t, articles[0].Title)
	assert.Contains(t, articles[0].Content, "orphan header")
}

func TestCleanFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Resetting Your Password", "resetting_your_password"},
		{"Card Declined / Payment Errors", "card_declined_payment_errors"},
		{`What's "2FA"?`, "whats_2fa"},
		{"  spaced   out  ", "spaced_out"},
		{"___", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanFilename(tt.in), "input %q", tt.in)
	}
}
