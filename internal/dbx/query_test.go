package dbx

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/useradmin/internal/common"
)

func TestRequireAffected(t *testing.T) {
	assert.NoError(t, RequireAffected(sqlmock.NewResult(0, 1)))
	assert.ErrorIs(t, RequireAffected(sqlmock.NewResult(0, 0)), common.ErrorNotFound)

	err := RequireAffected(sqlmock.NewErrorResult(errors.New("no count")))
	assert.EqualError(t, err, "db error: no count")
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, EscapeLike("100%"))
	assert.Equal(t, `a\_b`, EscapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, EscapeLike(`c:\dir`))
	assert.Equal(t, "plain", EscapeLike("plain"))
}
