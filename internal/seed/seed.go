// Package seed loads demo fixtures of branches, users and products.
package seed

import (
	"context"
	_ "embed"
	"log/slog"
	"os"

	"bakaaro-pos/internal/auth"
	"bakaaro-pos/internal/database"
	"bakaaro-pos/internal/models"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed.yaml
var defaultSeed []byte

type Branch struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Phone   string `yaml:"phone"`
	Manager string `yaml:"manager"`
}

type User struct {
	Username string      `yaml:"username"`
	Password string      `yaml:"password"`
	Name     string      `yaml:"name"`
	Role     models.Role `yaml:"role"`
	Branch   string      `yaml:"branch"`
}

type Product struct {
	Name        string  `yaml:"name"`
	Brand       string  `yaml:"brand"`
	Category    string  `yaml:"category"`
	Price       float64 `yaml:"price"`
	Quantity    int     `yaml:"quantity"`
	Barcode     string  `yaml:"barcode"`
	Description string  `yaml:"description"`
	Branch      string  `yaml:"branch"`
}

type Data struct {
	Branches []Branch  `yaml:"branches"`
	Users    []User    `yaml:"users"`
	Products []Product `yaml:"products"`
}

// Summary counts the records written and skipped by Apply.
type Summary struct {
	Branches int
	Users    int
	Products int
	Skipped  int
}

// Load reads fixtures from path, or the built-in set when path is empty.
func Load(path string) (*Data, error) {
	raw := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read seed file %s", path)
		}
		raw = b
	}

	data := new(Data)
	if err := yaml.Unmarshal(raw, data); err != nil {
		return nil, errors.Wrap(err, "parse seed data")
	}
	if err := data.validate(); err != nil {
		return nil, err
	}
	return data, nil
}

func (d *Data) validate() error {
	known := map[string]bool{}
	for _, b := range d.Branches {
		if b.Name == "" {
			return errors.New("seed branch without a name")
		}
		known[b.Name] = true
	}
	for _, u := range d.Users {
		if u.Username == "" || u.Password == "" {
			return errors.Errorf("seed user %q needs a username and password", u.Username)
		}
		if !u.Role.Valid() {
			return errors.Errorf("seed user %s has invalid role %q", u.Username, u.Role)
		}
		if !known[u.Branch] {
			return errors.Errorf("seed user %s references unknown branch %q", u.Username, u.Branch)
		}
	}
	for _, p := range d.Products {
		if p.Barcode == "" {
			return errors.Errorf("seed product %q has no barcode", p.Name)
		}
		if p.Price < 0 || p.Quantity < 0 {
			return errors.Errorf("seed product %s has a negative price or quantity", p.Barcode)
		}
		if !known[p.Branch] {
			return errors.Errorf("seed product %s references unknown branch %q", p.Barcode, p.Branch)
		}
	}
	return nil
}

// Apply writes the fixtures in one transaction. With reset every sale,
// product, user and branch is removed first; otherwise records whose
// name, username or barcode already exist are skipped.
func Apply(ctx context.Context, db *gorm.DB, hasher *auth.Hasher, data *Data, reset bool, logger *slog.Logger) (*Summary, error) {
	sum := &Summary{}

	err := database.Silence(db).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if reset {
			for _, m := range []any{&models.SaleItem{}, &models.Sale{}, &models.Product{}, &models.User{}, &models.Branch{}} {
				if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
					return errors.Wrapf(err, "clear %T", m)
				}
			}
		}

		for _, b := range data.Branches {
			created, err := createIfMissing(tx, &models.Branch{}, "name = ?", b.Name, &models.Branch{
				Name: b.Name, Address: b.Address, Phone: b.Phone, Manager: b.Manager, Active: true,
			})
			if err != nil {
				return errors.Wrapf(err, "branch %s", b.Name)
			}
			count(sum, &sum.Branches, created)
		}

		for _, u := range data.Users {
			hash, err := hasher.Hash(u.Password)
			if err != nil {
				return errors.Wrapf(err, "hash password of %s", u.Username)
			}
			created, err := createIfMissing(tx, &models.User{}, "username = ?", u.Username, &models.User{
				Username: u.Username, PasswordHash: hash, Name: u.Name, Role: u.Role, Branch: u.Branch, Active: true,
			})
			if err != nil {
				return errors.Wrapf(err, "user %s", u.Username)
			}
			count(sum, &sum.Users, created)
		}

		for _, p := range data.Products {
			created, err := createIfMissing(tx, &models.Product{}, "barcode = ?", p.Barcode, &models.Product{
				Name: p.Name, Brand: p.Brand, Category: p.Category, Price: p.Price,
				Quantity: p.Quantity, Barcode: p.Barcode, Description: p.Description, Branch: p.Branch,
			})
			if err != nil {
				return errors.Wrapf(err, "product %s", p.Barcode)
			}
			count(sum, &sum.Products, created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "seed data applied",
		slog.Bool("reset", reset),
		slog.Int("branches", sum.Branches),
		slog.Int("users", sum.Users),
		slog.Int("products", sum.Products),
		slog.Int("skipped", sum.Skipped),
	)
	return sum, nil
}

func createIfMissing(tx *gorm.DB, model any, query string, key string, record any) (bool, error) {
	var n int64
	if err := tx.Model(model).Where(query, key).Count(&n).Error; err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	return true, tx.Create(record).Error
}

func count(sum *Summary, field *int, created bool) {
	if created {
		*field++
	} else {
		sum.Skipped++
	}
}
