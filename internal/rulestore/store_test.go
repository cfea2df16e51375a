package rulestore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ir "github.com/PhucNguyen204/lognorm/engine_lognorm_by_golang"
	"github.com/PhucNguyen204/lognorm/pkg/lognorm"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return New(db, 0), mock
}

func TestInitSchema(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS lognorm_rulebases`).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.InitSchema(context.Background()))
}

func TestPutValidatesBeforeWriting(t *testing.T) {
	s, _ := newMockStore(t)
	err := s.Put(context.Background(), "bad.rb", "rule=:%x:nosuchtype%")
	require.Error(t, err)
	assert.ErrorIs(t, err, ir.ErrUnknownFieldType)

	var serr *ir.SyntaxError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "db:bad.rb", serr.Source)
}

func TestPutRejectsEmptyName(t *testing.T) {
	s, _ := newMockStore(t)
	assert.Error(t, s.Put(context.Background(), "", "rule=:x"))
}

func TestPutUpserts(t *testing.T) {
	s, mock := newMockStore(t)
	body := "rule=:hello %who:word%"
	mock.ExpectExec(`INSERT INTO lognorm_rulebases`).
		WithArgs("greet.rb", body).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Put(context.Background(), "greet.rb", body))
}

func TestGetNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT body, updated_at FROM lognorm_rulebases`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMissingTableIsReported(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT name, updated_at FROM lognorm_rulebases`).
		WillReturnError(&pq.Error{Code: codeUndefinedTable, Message: `relation "lognorm_rulebases" does not exist`})
	_, err := s.List(context.Background())
	assert.ErrorIs(t, err, ErrNoSchema)
}

func TestList(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(`SELECT name, updated_at FROM lognorm_rulebases ORDER BY name`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "updated_at"}).
			AddRow("a.rb", ts).
			AddRow("b.yaml", ts))
	got, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a.rb", got[0].Name)
	assert.Equal(t, "b.yaml", got[1].Name)
	assert.Equal(t, ts, got[1].UpdatedAt)
}

func TestDelete(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM lognorm_rulebases`).WithArgs("a.rb").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM lognorm_rulebases`).WithArgs("gone.rb").WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, s.Delete(context.Background(), "a.rb"))
	assert.ErrorIs(t, s.Delete(context.Background(), "gone.rb"), ErrNotFound)
}

func TestLoadInto(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT body, updated_at FROM lognorm_rulebases`).
		WithArgs("greet.rb").
		WillReturnRows(sqlmock.NewRows([]string{"body", "updated_at"}).
			AddRow("rule=:hello %who:word%", time.Now()))

	c, err := lognorm.New(ir.DefaultConfig().WithOptions(ir.OptAddRuleLocation))
	require.NoError(t, err)
	defer c.Release()

	n, err := s.LoadInto(context.Background(), c, "greet.rb")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := c.Normalize("hello bob")
	require.NoError(t, err)
	out, err := res.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"who":"bob","metadata":{"rule":{"location":{"file":"db:greet.rb","line":1}}}}`, string(out))
}
