package main

import (
	"fmt"
	"log"
	"time"

	"github.com/ducnx/licgate/internal/config"
	"github.com/ducnx/licgate/internal/model"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	// Load config
	cfg := config.Load()

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	seedOperator(db)
	seedSubscriptions(db)
	seedNotificationRule(db)

	log.Println("🎉 Seeding completed!")
}

func seedOperator(db *gorm.DB) {
	email := "admin@licgate.local"
	password := "password123"

	var existing model.Operator
	if err := db.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Printf("🔄 Operator already exists: %s", email)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("❌ Failed to hash password: %v", err)
	}

	operator := model.Operator{
		Name:     "Admin",
		Email:    email,
		Password: string(hashedPassword),
	}

	if err := db.Create(&operator).Error; err != nil {
		log.Printf("❌ Failed to create operator: %v", err)
		return
	}
	log.Printf("✅ Created operator: %s | Pass: %s", email, password)
}

func seedSubscriptions(db *gorm.DB) {
	log.Println("🌱 Seeding 10 subscriptions...")

	now := time.Now()
	for i := 1; i <= 10; i++ {
		contactKey := fmt.Sprintf("customer%d@example.com", i)

		var existing model.Subscription
		if err := db.Where("contact_key = ?", contactKey).First(&existing).Error; err == nil {
			continue
		}

		// Spread expiry dates around today so the notifier cohorts have
		// members: some expiring in 2 days, some expired yesterday.
		expiresAt := now.AddDate(0, 0, (i%5)*7-7)
		status := model.StatusActive
		if expiresAt.Before(now) {
			status = model.StatusExpired
		}
		if i == 10 {
			status = model.StatusBanned
		}

		sub := model.Subscription{
			ContactKey: contactKey,
			Status:     status,
			Plan:       []string{"basic", "pro"}[i%2],
			ExpiresAt:  &expiresAt,
			MaxDevices: model.DefaultMaxDevices,
			Phone:      fmt.Sprintf("8490000%04d", i),
		}

		if err := db.Create(&sub).Error; err != nil {
			log.Printf("❌ Failed to create subscription %s: %v", contactKey, err)
		} else {
			log.Printf("✅ Created subscription: %s | %s | expires %s", contactKey, status, expiresAt.Format("2006-01-02"))
		}
	}
}

func seedNotificationRule(db *gorm.DB) {
	var count int64
	db.Model(&model.NotificationRule{}).Count(&count)
	if count > 0 {
		return
	}

	rule := model.DefaultNotificationRule()
	rule.Enabled = true
	if err := db.Create(rule).Error; err != nil {
		log.Printf("❌ Failed to create notification rule: %v", err)
		return
	}
	log.Println("✅ Created default notification rule (enabled)")
}
