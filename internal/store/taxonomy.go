package store

import (
	"database/sql"
	"fmt"
	"time"
)

const categoryColumns = `id, name, slug, icon, color, description, built_in, active, sort_order, created_at`

func scanCategory(scan func(...any) error) (*Category, error) {
	c := &Category{}
	var builtIn, active int
	var createdAt string
	err := scan(&c.ID, &c.Name, &c.Slug, &c.Icon, &c.Color, &c.Description, &builtIn, &active, &c.SortOrder, &createdAt)
	if err != nil {
		return nil, err
	}
	c.BuiltIn = builtIn == 1
	c.Active = active == 1
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return c, nil
}

func (s *Store) CreateCategory(name, slug, icon, color, description string) (*Category, error) {
	res, err := s.db.Exec(
		`INSERT INTO categories (name, slug, icon, color, description, built_in, active, sort_order)
		 VALUES (?, ?, ?, ?, ?, 0, 1, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM categories))`,
		name, slug, icon, color, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetCategory(id)
}

func (s *Store) GetCategory(id int64) (*Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	c, err := scanCategory(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

// GetCategoryBySlug returns nil (no error) when the slug is unknown.
func (s *Store) GetCategoryBySlug(slug string) (*Category, error) {
	row := s.db.QueryRow(`SELECT `+categoryColumns+` FROM categories WHERE slug = ?`, slug)
	c, err := scanCategory(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get category %q: %w", slug, err)
	}
	return c, nil
}

func (s *Store) ListCategories(activeOnly bool) ([]Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		c, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *c)
	}
	return categories, rows.Err()
}

func (s *Store) CountCategories() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM categories`).Scan(&n)
	return n, err
}

// DeleteCategory removes a user-created category. Built-ins are kept.
func (s *Store) DeleteCategory(id int64) error {
	res, err := s.db.Exec(`DELETE FROM categories WHERE id = ? AND built_in = 0`, id)
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("category %d is built-in or missing", id)
	}
	return nil
}

const roleColumns = `id, name, description, color, icon, is_default, user_defined, active, sort_order, created_at`

func scanRole(scan func(...any) error) (*Role, error) {
	r := &Role{}
	var isDefault, userDefined, active int
	var createdAt string
	err := scan(&r.ID, &r.Name, &r.Description, &r.Color, &r.Icon, &isDefault, &userDefined, &active, &r.SortOrder, &createdAt)
	if err != nil {
		return nil, err
	}
	r.IsDefault = isDefault == 1
	r.UserDefined = userDefined == 1
	r.Active = active == 1
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return r, nil
}

func (s *Store) CreateRole(name, description, color, icon string) (*Role, error) {
	res, err := s.db.Exec(
		`INSERT INTO roles (name, description, color, icon, is_default, user_defined, active, sort_order)
		 VALUES (?, ?, ?, ?, 0, 1, 1, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM roles))`,
		name, description, color, icon,
	)
	if err != nil {
		return nil, fmt.Errorf("insert role: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetRole(id)
}

func (s *Store) GetRole(id int64) (*Role, error) {
	row := s.db.QueryRow(`SELECT `+roleColumns+` FROM roles WHERE id = ?`, id)
	r, err := scanRole(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("get role %d: %w", id, err)
	}
	return r, nil
}

// GetRoleByName matches case-insensitively and returns nil when unknown.
func (s *Store) GetRoleByName(name string) (*Role, error) {
	row := s.db.QueryRow(`SELECT `+roleColumns+` FROM roles WHERE name = ? COLLATE NOCASE`, name)
	r, err := scanRole(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get role %q: %w", name, err)
	}
	return r, nil
}

func (s *Store) ListRoles(activeOnly bool) ([]Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY sort_order, name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		r, err := scanRole(rows.Scan)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *r)
	}
	return roles, rows.Err()
}

// DeleteRole removes a user-defined role. Seeded roles are kept.
func (s *Store) DeleteRole(id int64) error {
	res, err := s.db.Exec(`DELETE FROM roles WHERE id = ? AND user_defined = 1`, id)
	if err != nil {
		return fmt.Errorf("delete role %d: %w", id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("role %d is not user-defined or missing", id)
	}
	return nil
}
