package sokoni_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/sokoni-dev/sokoni"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	// one named in-memory database per test so state never leaks between them
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx := context.Background()
	for _, model := range []any{
		(*sokoni.Account)(nil),
		(*sokoni.Approval)(nil),
	} {
		_, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		require.NoError(t, err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

func newTestRepo(t *testing.T) sokoni.RepositoryManager {
	t.Helper()
	return sokoni.NewRepositoryManager(newTestDB(t))
}

// registerAccount runs the real registration path, bcrypt and all.
func registerAccount(t *testing.T, repo sokoni.RepositoryManager, email string, role sokoni.Role) *sokoni.Account {
	t.Helper()

	handler := sokoni.NewRegisterAccountHandler(repo)
	account, err := handler.Execute(context.Background(), sokoni.RegisterAccountMessage{
		Email:    email,
		Password: "secret-pass",
		FullName: "Test Person",
		Role:     string(role),
	})
	require.NoError(t, err)
	require.NotNil(t, account)

	return account
}

// approveAccount flips the flag directly, for tests that need an approved
// actor without walking the decision path.
func approveAccount(t *testing.T, repo sokoni.RepositoryManager, account *sokoni.Account, approver *sokoni.Account) {
	t.Helper()

	ctx := context.Background()
	err := repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return repo.Accounts().Approve(ctx, tx, account.ID, approver.ID)
	})
	require.NoError(t, err)
	account.IsApproved = true
}

func pendingRequestFor(t *testing.T, repo sokoni.RepositoryManager, account *sokoni.Account) *sokoni.Approval {
	t.Helper()

	req, err := repo.Approvals().LatestForAccount(context.Background(), account.ID)
	require.NoError(t, err)
	require.NotNil(t, req)

	return req
}
