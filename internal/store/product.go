package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmcampos/despensa/internal/model"
)

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

func scanProduct(scanner interface{ Scan(...any) error }) (*model.Product, error) {
	var p model.Product
	var inList int

	err := scanner.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Quantity, &p.QuantityUnit, &p.Category,
		&p.AddedAt, &inList, &p.ShoppingQuantity, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.InShoppingList = inList != 0
	return &p, nil
}

const productCols = `id, user_id, name, quantity, quantity_unit, category, added_at, in_shopping_list, shopping_quantity, created_at, updated_at`

// ProductFilter narrows and orders List results. Zero values mean "no filter".
type ProductFilter struct {
	Search   string
	Category string
	Sort     string
}

// productSorts whitelists ORDER BY clauses; anything else falls back to name.
var productSorts = map[string]string{
	"name":          "name COLLATE NOCASE ASC",
	"name_desc":     "name COLLATE NOCASE DESC",
	"quantity":      "quantity ASC, name COLLATE NOCASE ASC",
	"quantity_desc": "quantity DESC, name COLLATE NOCASE ASC",
	"added":         "added_at ASC, id ASC",
	"added_desc":    "added_at DESC, id DESC",
}

func (s *ProductStore) Create(userID int64, name string, quantity int, quantityUnit, category string, addedAt time.Time) (*model.Product, error) {
	if addedAt.IsZero() {
		addedAt = time.Now().UTC()
	}
	result, err := s.db.Exec(
		`INSERT INTO products (user_id, name, quantity, quantity_unit, category, added_at) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, name, quantity, quantityUnit, category, addedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *ProductStore) GetByID(id, userID int64) (*model.Product, error) {
	row := s.db.QueryRow(`SELECT `+productCols+` FROM products WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanProduct(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (s *ProductStore) List(userID int64, filter ProductFilter) ([]model.Product, error) {
	query := `SELECT ` + productCols + ` FROM products WHERE user_id = ?`
	args := []any{userID}

	if filter.Search != "" {
		query += ` AND name LIKE ? COLLATE NOCASE`
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}

	orderBy, ok := productSorts[filter.Sort]
	if !ok {
		orderBy = productSorts["name"]
	}
	query += ` ORDER BY ` + orderBy

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *ProductStore) Update(id, userID int64, name string, quantity int, quantityUnit, category string) (*model.Product, error) {
	_, err := s.db.Exec(
		`UPDATE products SET name = ?, quantity = ?, quantity_unit = ?, category = ?, updated_at = datetime('now')
		 WHERE id = ? AND user_id = ?`,
		name, quantity, quantityUnit, category, id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *ProductStore) Delete(id, userID int64) error {
	_, err := s.db.Exec(`DELETE FROM products WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

// ToggleShopping flips the shopping-list flag. Adding stores the requested
// quantity (at least 1); removing resets it.
func (s *ProductStore) ToggleShopping(id, userID int64, quantity int) (*model.Product, error) {
	p, err := s.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}

	if p.InShoppingList {
		_, err = s.db.Exec(
			`UPDATE products SET in_shopping_list = 0, shopping_quantity = 0, updated_at = datetime('now') WHERE id = ?`,
			id,
		)
	} else {
		if quantity < 1 {
			quantity = 1
		}
		_, err = s.db.Exec(
			`UPDATE products SET in_shopping_list = 1, shopping_quantity = ?, updated_at = datetime('now') WHERE id = ?`,
			quantity, id,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("toggle shopping: %w", err)
	}
	return s.GetByID(id, userID)
}

func (s *ProductStore) ListShopping(userID int64) ([]model.Product, error) {
	rows, err := s.db.Query(
		`SELECT `+productCols+` FROM products WHERE user_id = ? AND in_shopping_list = 1 ORDER BY category ASC, name COLLATE NOCASE ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// Purchase confirms a shopping-list item was bought: the stored quantity
// grows by shopping_quantity and the flag clears.
func (s *ProductStore) Purchase(id, userID int64) (*model.Product, error) {
	p, err := s.GetByID(id, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	if !p.InShoppingList {
		return p, nil
	}

	_, err = s.db.Exec(
		`UPDATE products SET quantity = quantity + shopping_quantity, in_shopping_list = 0, shopping_quantity = 0, updated_at = datetime('now')
		 WHERE id = ?`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("purchase product: %w", err)
	}
	return s.GetByID(id, userID)
}

// ClearShopping unflags every shopping-list item for the user.
func (s *ProductStore) ClearShopping(userID int64) (int64, error) {
	result, err := s.db.Exec(
		`UPDATE products SET in_shopping_list = 0, shopping_quantity = 0, updated_at = datetime('now')
		 WHERE user_id = ? AND in_shopping_list = 1`,
		userID,
	)
	if err != nil {
		return 0, fmt.Errorf("clear shopping: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
