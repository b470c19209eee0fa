package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"stockflow/internal/domain"
)

func (r *Repository) ListParties(ctx context.Context, kind domain.PartyKind) ([]domain.Party, error) {
	table, err := partyTable(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+partyColumns+` FROM `+table+` ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	parties := []domain.Party{}
	for rows.Next() {
		p, err := scanPartyRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		parties = append(parties, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return parties, nil
}

func (r *Repository) GetParty(ctx context.Context, kind domain.PartyKind, id int64) (*domain.Party, error) {
	table, err := partyTable(kind)
	if err != nil {
		return nil, err
	}
	party, err := scanPartyRow(r.pool.QueryRow(ctx, `SELECT `+partyColumns+` FROM `+table+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(string(kind), id)
		}
		return nil, fmt.Errorf("get %s %d: %w", kind, id, err)
	}
	return &party, nil
}

func (r *Repository) GetPartyByDocument(ctx context.Context, kind domain.PartyKind, document string) (*domain.Party, error) {
	table, err := partyTable(kind)
	if err != nil {
		return nil, err
	}
	party, err := scanPartyRow(r.pool.QueryRow(ctx, `SELECT `+partyColumns+` FROM `+table+` WHERE document = $1`, document))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError(string(kind), document)
		}
		return nil, fmt.Errorf("get %s by document: %w", kind, err)
	}
	return &party, nil
}

func (r *Repository) CreateParty(ctx context.Context, kind domain.PartyKind, p domain.Party) (domain.Party, error) {
	table, err := partyTable(kind)
	if err != nil {
		return domain.Party{}, err
	}
	party, err := scanPartyRow(r.pool.QueryRow(ctx, `
		INSERT INTO `+table+` (name, document, email, phone, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+partyColumns,
		p.Name, p.Document, p.Email, p.Phone, p.Address,
	))
	if err != nil {
		if pgErrorCode(err) == pgUniqueViolation {
			return domain.Party{}, domain.NewConflictError(fmt.Sprintf("%s with document %s already exists", kind, p.Document))
		}
		return domain.Party{}, fmt.Errorf("create %s: %w", kind, err)
	}
	return party, nil
}

func (r *Repository) UpdateParty(ctx context.Context, kind domain.PartyKind, p domain.Party) (domain.Party, error) {
	table, err := partyTable(kind)
	if err != nil {
		return domain.Party{}, err
	}
	party, err := scanPartyRow(r.pool.QueryRow(ctx, `
		UPDATE `+table+`
		SET
			name = $2,
			document = $3,
			email = $4,
			phone = $5,
			address = $6
		WHERE id = $1
		RETURNING `+partyColumns,
		p.ID, p.Name, p.Document, p.Email, p.Phone, p.Address,
	))
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Party{}, domain.NewNotFoundError(string(kind), p.ID)
		case pgErrorCode(err) == pgUniqueViolation:
			return domain.Party{}, domain.NewConflictError(fmt.Sprintf("%s with document %s already exists", kind, p.Document))
		}
		return domain.Party{}, fmt.Errorf("update %s %d: %w", kind, p.ID, err)
	}
	return party, nil
}

func (r *Repository) DeleteParty(ctx context.Context, kind domain.PartyKind, id int64) error {
	table, err := partyTable(kind)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return domain.NewConflictError(fmt.Sprintf("%s %d is referenced by recorded transactions", kind, id))
		}
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NewNotFoundError(string(kind), id)
	}
	return nil
}
