package supplier

import "time"

// Supplier holds the contact channels fan-out resolves. Either channel may be
// missing; a supplier with neither simply gets a skipped notification.
type Supplier struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Email     *string   `gorm:"column:email"`
	Phone     *string   `gorm:"column:phone"`
	IsActive  bool      `gorm:"column:is_active;default:true"`
	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (Supplier) TableName() string {
	return "suppliers"
}

// Channels lists the reachable notification channels in dispatch order.
func (s *Supplier) Channels() []string {
	var out []string
	if s.Email != nil && *s.Email != "" {
		out = append(out, "email")
	}
	if s.Phone != nil && *s.Phone != "" {
		out = append(out, "sms")
	}
	return out
}
