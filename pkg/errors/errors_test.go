package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeThroughWrapping(t *testing.T) {
	base := New(CodeNotFound, "diagram not found")
	wrapped := fmt.Errorf("load: %w", base)

	assert.True(t, IsCode(wrapped, CodeNotFound))
	assert.False(t, IsCode(wrapped, CodeConflict))
	assert.Equal(t, CodeUnknown, CodeOf(fmt.Errorf("plain")))
}

func TestWrapNil(t *testing.T) {
	e := Wrap(nil, CodeInternal, "save failed")
	assert.Nil(t, e.Err)
	assert.Equal(t, "internal: save failed", e.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalid:   http.StatusBadRequest,
		CodeNotFound:  http.StatusNotFound,
		CodeConflict:  http.StatusConflict,
		CodeForbidden: http.StatusForbidden,
		CodeInternal:  http.StatusInternalServerError,
		CodeUnknown:   http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), string(code))
	}
}
