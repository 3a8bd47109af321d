package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/sqlscan"

	"freightDeliveryManagement/models"
)

type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with the given username, role and phone.
// Returns the created User with its generated ID.
func (r *UserRepository) Create(ctx context.Context, username string, role models.Role, phone string) (*models.User, error) {
	if !role.Valid() {
		return nil, errors.New("invalid role")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `INSERT INTO users (username, role, phone) VALUES (?,?,?)`, username, string(role), phone)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.User{ID: id, Username: username, Role: role, Phone: phone}, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, `SELECT id, username, role, phone FROM users WHERE id = ?`, id)
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, `SELECT id, username, role, phone FROM users WHERE username = ?`, username)
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var u models.User
	if err := sqlscan.Get(ctx, r.db, &u, query, args...); err != nil {
		if sqlscan.NotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// GetOrCreate returns the user with username, creating it with role and phone when absent.
// An existing user keeps its stored role.
func (r *UserRepository) GetOrCreate(ctx context.Context, username string, role models.Role, phone string) (*models.User, error) {
	u, err := r.GetByUsername(ctx, username)
	if err != nil || u != nil {
		return u, err
	}
	return r.Create(ctx, username, role, phone)
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out []models.User
	err := sqlscan.Select(ctx, r.db, &out, `SELECT id, username, role, phone FROM users ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	return out, err
}
