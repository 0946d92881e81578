package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("bad"), KindValidation},
		{"not found", NotFound("missing"), KindNotFound},
		{"conflict", Conflict("overlap"), KindConflict},
		{"forbidden", Forbidden("nope"), KindAuthorization},
		{"state", State("terminal"), KindState},
		{"wrapped", fmt.Errorf("ctx: %w", Conflict("overlap")), KindConflict},
		{"plain error", errors.New("boom"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestStateAndConflictShareStatusButNotKind(t *testing.T) {
	s := State("immutable")
	c := Conflict("overlap")

	assert.Equal(t, c.Code, s.Code)
	assert.False(t, IsKind(s, KindConflict))
	assert.True(t, IsKind(s, KindState))
	assert.False(t, IsKind(nil, KindInternal))
	assert.Equal(t, http.StatusConflict, s.Code)
}
