package cryptobox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	box, err := New("cle-partagee")
	require.NoError(t, err)

	type payload struct {
		Name  string   `json:"name"`
		Score string   `json:"score"`
		Tags  []string `json:"tags"`
	}
	in := payload{Name: "contrat.pdf", Score: "CRITIQUE", Tags: []string{"M&A", "cession"}}

	sealed, err := box.Seal(in)
	require.NoError(t, err)
	require.NotEmpty(t, sealed)
	assert.NotContains(t, sealed, "contrat.pdf")

	var out payload
	require.True(t, box.Open(sealed, &out))
	assert.Equal(t, in, out)
}

func TestOpenGarbageReturnsFalse(t *testing.T) {
	box, err := New("cle-partagee")
	require.NoError(t, err)

	var out map[string]any
	assert.False(t, box.Open("pas du tout du base64 !!", &out))
	assert.False(t, box.Open("", &out))
	assert.False(t, box.Open("AAAA", &out)) // shorter than a nonce
}

func TestOpenWrongKeyReturnsFalse(t *testing.T) {
	a, err := New("cle-a")
	require.NoError(t, err)
	b, err := New("cle-b")
	require.NoError(t, err)

	sealed, err := a.Seal(map[string]string{"k": "v"})
	require.NoError(t, err)

	var out map[string]string
	assert.False(t, b.Open(sealed, &out))
	assert.True(t, a.Open(sealed, &out))
}

func TestNewRejectsEmptySecret(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
