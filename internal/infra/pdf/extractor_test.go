package pdf

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractRejectsNonPDFBytes(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(context.Background(), []byte("pas un pdf du tout"))
	assert.Error(t, err)
}

func TestExtractRejectsEmptyInput(t *testing.T) {
	e := NewExtractor()
	_, err := e.Extract(context.Background(), nil)
	assert.Error(t, err)
}
