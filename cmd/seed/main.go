package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"mao-amiga/pkg/cache"
	"mao-amiga/pkg/config"
	"mao-amiga/pkg/database"
	"mao-amiga/pkg/logger"
	"mao-amiga/pkg/models"
	"mao-amiga/pkg/s3"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type seedCampaign struct {
	title       string
	description string
	goal        string
	beneficiary string
	donations   []string
	completed   bool
}

var seedOrganizers = []struct {
	email     string
	name      string
	password  string
	campaigns []seedCampaign
}{
	{
		email:    "ana@test.com",
		name:     "Ana Souza",
		password: "password123",
		campaigns: []seedCampaign{
			{"Cirurgia do Thor", "O Thor precisa operar a pata traseira.", "2500.00", "Ana Souza", []string{"150.00", "80.50", "300.00"}, false},
			{"Ração para o abrigo", "Um mês de ração para 40 cães resgatados.", "1200.00", "Abrigo Patas", []string{"1200.00"}, true},
		},
	},
	{
		email:    "bruno@test.com",
		name:     "Bruno Lima",
		password: "password123",
		campaigns: []seedCampaign{
			{"Cestas básicas no bairro", "Cestas para 30 famílias da comunidade.", "3000.00", "Associação Vila Nova", []string{"250.50", "49.50"}, false},
		},
	},
	{
		email:    "carla@test.com",
		name:     "",
		password: "password123",
		campaigns: []seedCampaign{
			{"Reforma da biblioteca", "Estantes e pintura da biblioteca escolar.", "5000.00", "Escola Municipal Sol", nil, false},
		},
	},
}

var seedDonors = []string{"Marina", "", "Pedro", "Júlia", ""}

func main() {
	var withImages bool
	flag.BoolVar(&withImages, "images", false, "Download cover images and upload them to S3")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}

	var s3Client *s3.Client
	if withImages {
		s3Client, err = s3.NewClient(cfg)
		if err != nil {
			log.Error("Failed to create S3 client: %v", err)
			panic(err)
		}
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Redis unavailable, cached campaign pages will expire on their own: %v", err)
		redisClient = nil
	}

	if err := seedDatabase(db, s3Client, redisClient, log); err != nil {
		log.Error("Failed to seed database: %v", err)
		panic(err)
	}

	log.Info("Database seeded successfully!")
}

func seedDatabase(db *gorm.DB, s3Client *s3.Client, redisClient *redis.Client, log *logger.Logger) error {
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	for _, organizer := range seedOrganizers {
		var existing models.User
		if err := db.Where("email = ?", organizer.email).First(&existing).Error; err == nil {
			log.Info("User %s already exists, skipping", organizer.email)
			continue
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(organizer.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user := &models.User{
			Email:    organizer.email,
			Password: string(hashedPassword),
			Role:     models.RoleUser,
			IsActive: true,
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(user).Error; err != nil {
				return err
			}
			return tx.Create(&models.Profile{ID: user.ID, Name: organizer.name}).Error
		})
		if err != nil {
			log.Error("Failed to create user %s: %v", organizer.email, err)
			continue
		}
		log.Info("Created organizer: %s", organizer.email)

		for i, sc := range organizer.campaigns {
			var imageURL *string
			if s3Client != nil {
				url, err := uploadCover(httpClient, s3Client, user.ID, i, log)
				if err != nil {
					log.Error("Failed to upload cover for %q: %v", sc.title, err)
				} else {
					imageURL = &url
				}
			}

			campaign, err := createCampaign(db, user.ID, sc, imageURL)
			if err != nil {
				log.Error("Failed to create campaign %q: %v", sc.title, err)
				continue
			}
			log.Info("Created campaign %q (%s) raised=%s", campaign.Title, campaign.ID, campaign.Raised.StringFixed(2))

			if redisClient != nil {
				redisClient.Incr(context.Background(), fmt.Sprintf("campaign:%s:gen", campaign.ID))
			}
		}
	}

	return nil
}

func createCampaign(db *gorm.DB, creatorID string, sc seedCampaign, imageURL *string) (*models.Campaign, error) {
	goal, err := decimal.NewFromString(sc.goal)
	if err != nil {
		return nil, err
	}

	status := models.CampaignActive
	if sc.completed {
		status = models.CampaignCompleted
	}

	campaign := &models.Campaign{
		CreatorID:       creatorID,
		Title:           sc.title,
		Description:     sc.description,
		Goal:            goal,
		Raised:          decimal.Zero,
		PixKey:          fmt.Sprintf("pix+%s@test.com", creatorID[:8]),
		BeneficiaryName: sc.beneficiary,
		ImageURL:        imageURL,
		Status:          status,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(campaign).Error; err != nil {
			return err
		}

		for i, raw := range sc.donations {
			amount, err := decimal.NewFromString(raw)
			if err != nil {
				return err
			}
			supporter := &models.Supporter{
				CampaignID: campaign.ID,
				Name:       seedDonors[i%len(seedDonors)],
				Amount:     amount,
				CreatedAt:  time.Now().Add(time.Duration(i-len(sc.donations)) * time.Hour),
			}
			if supporter.Name == "" {
				supporter.Name = "Doador Anônimo"
			}
			if err := tx.Create(supporter).Error; err != nil {
				return err
			}
		}

		return tx.Exec(
			`UPDATE campaigns SET raised = (SELECT COALESCE(SUM(amount), 0) FROM supporters WHERE campaign_id = ?) WHERE id = ?`,
			campaign.ID, campaign.ID,
		).Error
	})
	if err != nil {
		return nil, err
	}

	if err := db.First(campaign, "id = ?", campaign.ID).Error; err != nil {
		return nil, err
	}
	return campaign, nil
}

func uploadCover(httpClient *http.Client, s3Client *s3.Client, userID string, index int, log *logger.Logger) (string, error) {
	sourceURL := fmt.Sprintf("https://picsum.photos/seed/%s-%d/800/450", userID[:8], index)

	log.Info("Fetching cover image from %s", sourceURL)
	resp, err := httpClient.Get(sourceURL)
	if err != nil {
		return "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image source returned status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read image data: %w", err)
	}
	if len(imageData) == 0 {
		return "", fmt.Errorf("received empty image data")
	}

	fileKey := fmt.Sprintf("campaigns/%s/seed_%d.jpg", userID, index)
	return s3Client.UploadFile(fileKey, bytes.NewReader(imageData), "image/jpeg")
}
