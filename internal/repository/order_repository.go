package repository

import (
	"context"
	"errors"
	"regexp"
	"sort"

	"github.com/yamakishi/tehai-ops/internal/entity"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) Update(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).Preload("Details").Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &order, err
}

// FindBySeibanAndUnit 未アーカイブの (製番, ユニット) で検索。無ければErrNotFound。
func (r *OrderRepository) FindBySeibanAndUnit(ctx context.Context, seiban, unit string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Where("seiban = ? AND unit = ? AND is_archived = false", seiban, unit).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &order, err
}

func (r *OrderRepository) ListBySeiban(ctx context.Context, seiban string, includeArchived bool) ([]entity.Order, error) {
	query := r.db.WithContext(ctx).Where("seiban = ?", seiban)
	if !includeArchived {
		query = query.Where("is_archived = false")
	}
	var orders []entity.Order
	err := query.Order("unit ASC").Find(&orders).Error
	return orders, err
}

type OrderListParams struct {
	Seiban   string
	Status   string
	Archived bool
	Keyword  string
	Page     int
	Size     int
}

func (r *OrderRepository) List(ctx context.Context, params OrderListParams) ([]entity.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("is_archived = ?", params.Archived)
	if params.Seiban != "" {
		query = query.Where("seiban = ?", params.Seiban)
	}
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where("seiban ILIKE ? OR unit ILIKE ? OR product_name ILIKE ?", kw, kw, kw)
	}
	var total int64
	query.Count(&total)
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 50
	}
	var orders []entity.Order
	err := query.Order("seiban ASC, unit ASC").
		Offset((params.Page - 1) * params.Size).Limit(params.Size).Find(&orders).Error
	return orders, total, err
}

var branchPattern = regexp.MustCompile(`^(.+?)-\d+$`)

// ParentSeiban 枝番から親製番を取り出す（MHT0620-001 → MHT0620）。枝番でなければ空。
func ParentSeiban(seiban string) string {
	m := branchPattern.FindStringSubmatch(seiban)
	if m == nil {
		return ""
	}
	return m[1]
}

// ListSeibanFamily 親製番＋全枝番の製番リスト。親が先、枝番は番号順。
func (r *OrderRepository) ListSeibanFamily(ctx context.Context, seiban string) ([]string, error) {
	base := seiban
	if parent := ParentSeiban(seiban); parent != "" {
		base = parent
	}

	var orders []entity.Order
	err := r.db.WithContext(ctx).
		Where("(seiban = ? OR seiban LIKE ?) AND is_archived = false", base, base+"-%").
		Select("DISTINCT seiban").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var family []string
	for _, o := range orders {
		if !seen[o.Seiban] {
			seen[o.Seiban] = true
			family = append(family, o.Seiban)
		}
	}
	sortSeibanFamily(family, base)
	return family, nil
}

// sortSeibanFamily 親製番を先頭に、枝番を番号昇順に並べる
func sortSeibanFamily(family []string, base string) {
	branchNo := func(s string) (int, bool) {
		m := branchPattern.FindStringSubmatch(s)
		if m == nil || m[1] != base {
			return 0, false
		}
		n := 0
		for _, c := range s[len(base)+1:] {
			n = n*10 + int(c-'0')
		}
		return n, true
	}
	sort.SliceStable(family, func(i, j int) bool {
		a, b := family[i], family[j]
		if a == base {
			return true
		}
		if b == base {
			return false
		}
		an, aok := branchNo(a)
		bn, bok := branchNo(b)
		if aok && bok {
			return an < bn
		}
		if aok != bok {
			return aok
		}
		return a < b
	})
}

func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&entity.OrderDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Order{}, "id = ?", id).Error
	})
}
