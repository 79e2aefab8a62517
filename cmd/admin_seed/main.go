// Seeds the admin account, one reviewer per unit, and the official
// rate schedule. Safe to run repeatedly.
package main

import (
	"context"
	"log"
	"os"

	"envpermit/internal/config"
	"envpermit/internal/models"
	"envpermit/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

var reviewers = []struct {
	Email string
	Name  string
	Role  string
	Unit  string
}{
	{"registry@envpermit.local", "Registry Officer", models.RoleRegistry, "Registry Unit"},
	{"compliance@envpermit.local", "Compliance Officer", models.RoleCompliance, "Compliance Unit"},
	{"finance@envpermit.local", "Revenue Officer", models.RoleFinance, "Revenue & Finance Unit"},
	{"director@envpermit.local", "Managing Director", models.RoleDirector, "Office of the Managing Director"},
}

var rateEntries = []models.RateEntry{
	{ActivityType: "mining", ActivityLevel: models.ActivityLevel3, PermitType: "Mining Permit",
		PrescribedActivityID: "PA-301", AdminFee: 7500, TechnicalFee: 15000, ProcessingDays: 90},
	{ActivityType: "mining", ActivityLevel: models.ActivityLevel2, PermitType: "Exploration Permit",
		PrescribedActivityID: "PA-205", AdminFee: 2000, TechnicalFee: 4500, ProcessingDays: 60},
	{ActivityType: "forestry", ActivityLevel: models.ActivityLevel2, PermitType: "Logging Permit",
		PrescribedActivityID: "PA-210", AdminFee: 1800, TechnicalFee: 3600, ProcessingDays: 45},
	{ActivityType: "agriculture", ActivityLevel: models.ActivityLevel1, PermitType: "Land Use Permit",
		PrescribedActivityID: "PA-101", AdminFee: 400, TechnicalFee: 800, ProcessingDays: 30},
	{ActivityType: "manufacturing", ActivityLevel: models.ActivityLevel3, PermitType: "Discharge Permit",
		PrescribedActivityID: "PA-330", AdminFee: 6000, TechnicalFee: 12000, ProcessingDays: 90},
}

func main() {
	config.LoadEnv()

	adminEmail := os.Getenv("ADMIN_EMAIL")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}
	reviewerPassword := config.GetEnv("REVIEWER_PASSWORD", adminPassword)

	if err := repositories.InitDB(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer func() {
		if repositories.DB != nil {
			if sqlDB, err := repositories.DB.DB(); err == nil {
				sqlDB.Close()
			}
		}
		if repositories.CacheService != nil {
			repositories.CacheService.Close()
		}
	}()

	seedUser(adminEmail, adminPassword, "Administrator", models.RoleAdmin, "")
	for _, r := range reviewers {
		seedUser(r.Email, reviewerPassword, r.Name, r.Role, r.Unit)
	}

	rateRepo := repositories.NewRateScheduleRepository(repositories.DB, repositories.CacheService)
	for i := range rateEntries {
		entry := rateEntries[i]
		if err := rateRepo.Upsert(context.Background(), &entry); err != nil {
			log.Fatalf("Failed to seed rate entry %s/%s: %v", entry.ActivityType, entry.PermitType, err)
		}
	}

	log.Println("✅ Seed complete")
}

func seedUser(email, password, name, role, unit string) {
	var existing models.User
	if err := repositories.DB.Where("email = ?", email).First(&existing).Error; err == nil {
		log.Printf("User %s already exists", email)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash password:", err)
	}

	user := models.User{
		Email:        email,
		Password:     string(hashed),
		Name:         name,
		Role:         role,
		Unit:         unit,
		TokenVersion: 1,
	}
	if err := repositories.DB.Create(&user).Error; err != nil {
		log.Fatalf("Failed to create user %s: %v", email, err)
	}
	log.Printf("Created %s user %s", role, email)
}
