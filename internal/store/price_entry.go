package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmcampos/despensa/internal/model"
)

type PriceStore struct {
	db *sql.DB
}

func NewPriceStore(db *sql.DB) *PriceStore {
	return &PriceStore{db: db}
}

func scanPriceEntry(scanner interface{ Scan(...any) error }) (*model.PriceEntry, error) {
	var e model.PriceEntry
	var isOffer int

	err := scanner.Scan(
		&e.ID, &e.UserID, &e.ProductName, &e.Brand, &e.TotalPrice, &e.Quantity,
		&e.Unit, &e.PricePerUnit, &e.Supermarket, &isOffer, &e.OfferNotes,
		&e.PurchasedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.IsOffer = isOffer != 0
	return &e, nil
}

const priceCols = `id, user_id, product_name, brand, total_price, quantity, unit, price_per_unit, supermarket, is_offer, offer_notes, purchased_at, created_at, updated_at`

// PriceFilter narrows and orders List results. Zero values mean "no filter".
type PriceFilter struct {
	Product     string
	Supermarket string
	Search      string
	Sort        string
}

var priceSorts = map[string]string{
	"date":            "purchased_at DESC, id DESC",
	"date_asc":        "purchased_at ASC, id ASC",
	"price":           "total_price ASC",
	"price_desc":      "total_price DESC",
	"normalized":      "price_per_unit ASC",
	"normalized_desc": "price_per_unit DESC",
	"product":         "product_name COLLATE NOCASE ASC, price_per_unit ASC",
}

// NewPriceEntry carries the fields the caller controls on create/update.
// PricePerUnit is computed by the handler before it reaches the store.
type NewPriceEntry struct {
	ProductName  string
	Brand        string
	TotalPrice   float64
	Quantity     float64
	Unit         string
	PricePerUnit float64
	Supermarket  string
	IsOffer      bool
	OfferNotes   string
	PurchasedAt  time.Time
}

func (s *PriceStore) Create(userID int64, e NewPriceEntry) (*model.PriceEntry, error) {
	if e.PurchasedAt.IsZero() {
		e.PurchasedAt = time.Now().UTC()
	}
	result, err := s.db.Exec(
		`INSERT INTO price_entries (user_id, product_name, brand, total_price, quantity, unit, price_per_unit, supermarket, is_offer, offer_notes, purchased_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, e.ProductName, e.Brand, e.TotalPrice, e.Quantity, e.Unit,
		e.PricePerUnit, e.Supermarket, boolToInt(e.IsOffer), e.OfferNotes, e.PurchasedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert price entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *PriceStore) GetByID(id, userID int64) (*model.PriceEntry, error) {
	row := s.db.QueryRow(`SELECT `+priceCols+` FROM price_entries WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanPriceEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get price entry: %w", err)
	}
	return e, nil
}

func (s *PriceStore) List(userID int64, filter PriceFilter) ([]model.PriceEntry, error) {
	query := `SELECT ` + priceCols + ` FROM price_entries WHERE user_id = ?`
	args := []any{userID}

	if filter.Product != "" {
		query += ` AND product_name = ? COLLATE NOCASE`
		args = append(args, filter.Product)
	}
	if filter.Supermarket != "" {
		query += ` AND supermarket = ? COLLATE NOCASE`
		args = append(args, filter.Supermarket)
	}
	if filter.Search != "" {
		query += ` AND (product_name LIKE ? COLLATE NOCASE OR brand LIKE ? COLLATE NOCASE)`
		like := "%" + filter.Search + "%"
		args = append(args, like, like)
	}

	orderBy, ok := priceSorts[filter.Sort]
	if !ok {
		orderBy = priceSorts["date"]
	}
	query += ` ORDER BY ` + orderBy

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list price entries: %w", err)
	}
	defer rows.Close()

	var entries []model.PriceEntry
	for rows.Next() {
		e, err := scanPriceEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan price entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *PriceStore) Update(id, userID int64, e NewPriceEntry) (*model.PriceEntry, error) {
	if e.PurchasedAt.IsZero() {
		e.PurchasedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`UPDATE price_entries SET product_name = ?, brand = ?, total_price = ?, quantity = ?, unit = ?, price_per_unit = ?, supermarket = ?, is_offer = ?, offer_notes = ?, purchased_at = ?, updated_at = datetime('now')
		 WHERE id = ? AND user_id = ?`,
		e.ProductName, e.Brand, e.TotalPrice, e.Quantity, e.Unit, e.PricePerUnit,
		e.Supermarket, boolToInt(e.IsOffer), e.OfferNotes, e.PurchasedAt, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update price entry: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *PriceStore) Delete(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM price_entries WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete price entry: %w", err)
	}
	return nil
}

// DeleteMany removes the given entries in one statement, scoped to the owner.
// Rows belonging to other users are silently skipped; the returned count tells
// the caller how many actually went away.
func (s *PriceStore) DeleteMany(userID int64, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	result, err := s.db.Exec(
		`DELETE FROM price_entries WHERE user_id = ? AND id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("bulk delete price entries: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// ListSupermarkets returns the distinct supermarket names the user has
// recorded, for form autocomplete.
func (s *PriceStore) ListSupermarkets(userID int64) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT supermarket FROM price_entries WHERE user_id = ? AND supermarket != '' ORDER BY supermarket COLLATE NOCASE ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list supermarkets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan supermarket: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
