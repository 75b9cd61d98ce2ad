package repository

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"property-governance-backend/governance"
	"property-governance-backend/models"
)

// DirectoryRepository reads building membership and apartment ownership from
// the user and property tables.
type DirectoryRepository struct {
	db *gorm.DB
}

var _ governance.Directory = (*DirectoryRepository)(nil)

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// UserBuildingIDs returns the buildings where the user owns an apartment,
// rents one actively or is a manager. Holders of the Admin role get all.
func (r *DirectoryRepository) UserBuildingIDs(ctx context.Context, userID uint64) ([]uint64, bool, error) {
	db := r.db.WithContext(ctx)

	var admins int64
	if err := db.Table("user_roles").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.name = ?", userID, models.RoleAdmin).
		Count(&admins).Error; err != nil {
		return nil, false, errors.Wrapf(err, "load roles of user %d", userID)
	}
	if admins > 0 {
		return nil, true, nil
	}

	var owned []uint64
	if err := db.Table("apartment_owners").
		Joins("JOIN apartments ON apartments.id = apartment_owners.apartment_id").
		Where("apartment_owners.user_id = ? AND apartments.is_deleted = ?", userID, false).
		Distinct().
		Pluck("apartments.building_id", &owned).Error; err != nil {
		return nil, false, errors.Wrapf(err, "load owned buildings of user %d", userID)
	}

	var rented []uint64
	if err := db.Table("apartment_renters").
		Joins("JOIN apartments ON apartments.id = apartment_renters.apartment_id").
		Where("apartment_renters.user_id = ? AND apartment_renters.is_active = ? AND apartments.is_deleted = ?", userID, true, false).
		Distinct().
		Pluck("apartments.building_id", &rented).Error; err != nil {
		return nil, false, errors.Wrapf(err, "load rented buildings of user %d", userID)
	}

	var managed []uint64
	if err := db.Model(&models.BuildingManager{}).
		Where("user_id = ?", userID).
		Pluck("building_id", &managed).Error; err != nil {
		return nil, false, errors.Wrapf(err, "load managed buildings of user %d", userID)
	}

	return mergeIDs(owned, rented, managed), false, nil
}

// ApartmentsOwnedBy returns the non-deleted apartments owned by the user,
// optionally restricted to one building.
func (r *DirectoryRepository) ApartmentsOwnedBy(ctx context.Context, userID uint64, buildingID *uint64) ([]models.OwnedApartment, error) {
	q := r.db.WithContext(ctx).
		Table("apartment_owners").
		Select("apartments.id AS apartment_id, apartments.building_id, apartments.size_sq_m").
		Joins("JOIN apartments ON apartments.id = apartment_owners.apartment_id").
		Where("apartment_owners.user_id = ? AND apartments.is_deleted = ?", userID, false)
	if buildingID != nil {
		q = q.Where("apartments.building_id = ?", *buildingID)
	}
	apts := []models.OwnedApartment{}
	if err := q.Order("apartments.id").Scan(&apts).Error; err != nil {
		return nil, errors.Wrapf(err, "load apartments of user %d", userID)
	}
	return apts, nil
}

// UserRoles returns the role names of a user.
func (r *DirectoryRepository) UserRoles(ctx context.Context, userID uint64) ([]string, error) {
	var names []string
	if err := r.db.WithContext(ctx).
		Table("roles").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.name").
		Pluck("roles.name", &names).Error; err != nil {
		return nil, errors.Wrapf(err, "load roles of user %d", userID)
	}
	return names, nil
}

func mergeIDs(lists ...[]uint64) []uint64 {
	seen := make(map[uint64]struct{})
	out := []uint64{}
	for _, l := range lists {
		for _, id := range l {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
