package sqlite

import (
	"context"
)

type backupCodesRepo struct {
	db querier
}

func (r *backupCodesRepo) Create(ctx context.Context, accountID string, codeHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO backup_codes (account_id, code_hash)
		VALUES (?, ?)`,
		accountID, codeHash)
	return err
}

// Consume removes the code in a single DELETE so two concurrent logins with
// the same backup code cannot both succeed.
func (r *backupCodesRepo) Consume(ctx context.Context, accountID string, codeHash string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM backup_codes
		WHERE account_id = ? AND code_hash = ?`,
		accountID, codeHash)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *backupCodesRepo) DeleteAll(ctx context.Context, accountID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM backup_codes WHERE account_id = ?`, accountID)
	return err
}

func (r *backupCodesRepo) Count(ctx context.Context, accountID string) (int, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM backup_codes WHERE account_id = ?`, accountID)

	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
