package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/partybook/settlement-service/internal/core/datamodel/booking"
	"github.com/partybook/settlement-service/internal/core/datamodel/supplier"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample suppliers and bookings for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := initGorm(sqlxDB)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"settlement_failures", "settlement_records", "line_items", "bookings", "suppliers"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		seedSuppliers(db)
		seedBookings(db)
	},
}

func seedSuppliers(db *gorm.DB) {
	email1 := "bounce-kingdom@mail.com"
	phone1 := "+15550100001"
	email2 := "partyfeast@mail.com"

	suppliers := []supplier.Supplier{
		{Name: "Bounce Kingdom", Email: &email1, Phone: &phone1, IsActive: true},
		{Name: "Party Feast Catering", Email: &email2, IsActive: true},
		{Name: "Silent Clowns Co", IsActive: true}, // no contact channels on purpose
	}

	for i := range suppliers {
		var exists int64
		db.Model(&supplier.Supplier{}).Where("name = ?", suppliers[i].Name).Count(&exists)
		if exists > 0 {
			fmt.Println("supplier already exists:", suppliers[i].Name)
			continue
		}
		if err := db.Create(&suppliers[i]).Error; err != nil {
			log.Fatalf("failed to seed supplier %s: %v", suppliers[i].Name, err)
		}
		fmt.Println("Seeded supplier:", suppliers[i].Name)
	}
}

func seedBookings(db *gorm.DB) {
	var bounceID, cateringID int64
	db.Model(&supplier.Supplier{}).Where("name = ?", "Bounce Kingdom").Select("id").Scan(&bounceID)
	db.Model(&supplier.Supplier{}).Where("name = ?", "Party Feast Catering").Select("id").Scan(&cateringID)

	b := booking.Booking{
		CustomerName:  "Dana Whitfield",
		CustomerEmail: "dana@mail.com",
		PaymentStatus: booking.PaymentStatusPending,
		TotalPrice:    45000,
		Plan: booking.Plan{
			"bounce_house": {SupplierID: &bounceID, PackageID: "castle-deluxe", Price: 25000},
			"catering":     {SupplierID: &cateringID, PackageID: "kids-buffet", Price: 18000},
			booking.CategoryEInvites: {PackageID: "sparkle-theme", Price: 2000},
		},
		Addons: booking.Addons{
			{Name: "Extra hour", Price: 5000},
		},
	}

	var exists int64
	db.Model(&booking.Booking{}).Where("customer_email = ?", b.CustomerEmail).Count(&exists)
	if exists > 0 {
		fmt.Println("booking already exists for:", b.CustomerEmail)
		return
	}
	if err := db.Create(&b).Error; err != nil {
		log.Fatalf("failed to seed booking: %v", err)
	}
	fmt.Printf("Seeded booking %d for %s\n", b.ID, b.CustomerName)
}
