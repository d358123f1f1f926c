package repo

import (
	"context"
	"database/sql"
	"errors"

	"taskboard/internal/domain"
)

func (r Repo) SaveCalendarToken(ctx context.Context, tok domain.CalendarToken) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO calendar_tokens(owner_id,access_token,refresh_token,token_type,expiry,updated_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(owner_id) DO UPDATE SET access_token=excluded.access_token,
  refresh_token=COALESCE(excluded.refresh_token, calendar_tokens.refresh_token),
  token_type=excluded.token_type, expiry=excluded.expiry, updated_at=excluded.updated_at`,
		tok.OwnerID, tok.AccessToken, nullable(tok.RefreshToken), nullable(tok.TokenType), nullable(tok.Expiry), tok.UpdatedAt)
	return err
}

func (r Repo) GetCalendarToken(ctx context.Context, ownerID string) (domain.CalendarToken, error) {
	var (
		tok     domain.CalendarToken
		refresh sql.NullString
		typ     sql.NullString
		expiry  sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, `SELECT owner_id,access_token,refresh_token,token_type,expiry,updated_at FROM calendar_tokens WHERE owner_id=?`, ownerID).
		Scan(&tok.OwnerID, &tok.AccessToken, &refresh, &typ, &expiry, &tok.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return tok, ErrNotFound
	}
	tok.RefreshToken = refresh.String
	tok.TokenType = typ.String
	tok.Expiry = expiry.String
	return tok, err
}

func (r Repo) DeleteCalendarToken(ctx context.Context, ownerID string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM calendar_tokens WHERE owner_id=?`, ownerID)
	return err
}
