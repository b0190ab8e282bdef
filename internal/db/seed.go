package db

import (
	"fmt"
	"time"

	"imob-crm/internal/logging"
	"imob-crm/pkg/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeedDemo creates a small demo portfolio for ownerID: two properties, two
// leads and one negotiation with activities. It does nothing when the owner
// already has leads.
func SeedDemo(gdb *gorm.DB, ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("seed: owner id is required")
	}

	var count int64
	if err := gdb.Model(&models.Lead{}).Where("owner_id = ?", ownerID).Count(&count).Error; err != nil {
		return fmt.Errorf("seed: failed to count leads: %w", err)
	}
	if count > 0 {
		logging.L().Info("demo data already present", zap.String("owner_id", ownerID))
		return nil
	}

	return gdb.Transaction(func(tx *gorm.DB) error {
		properties := []models.Property{
			{
				OwnerID:      ownerID,
				Kind:         models.PropertyKindDevelopment,
				Title:        "Residencial Parque das Águas",
				Developer:    "Construtora Horizonte",
				City:         "Campinas",
				Neighborhood: "Taquaral",
				Price:        780000,
				AreaM2:       86,
				Bedrooms:     3,
				Bathrooms:    2,
				ParkingSpots: 2,
				Status:       models.PropertyStatusAvailable,
			},
			{
				OwnerID:      ownerID,
				Kind:         models.PropertyKindResale,
				Title:        "Apartamento reformado no Cambuí",
				City:         "Campinas",
				Neighborhood: "Cambuí",
				Price:        520000,
				AreaM2:       64,
				Bedrooms:     2,
				Bathrooms:    1,
				ParkingSpots: 1,
				Status:       models.PropertyStatusAvailable,
			},
		}
		if err := tx.Create(&properties).Error; err != nil {
			return fmt.Errorf("seed: failed to create properties: %w", err)
		}

		leads := []models.Lead{
			{
				OwnerID:     ownerID,
				Name:        "Fernanda Lima",
				Email:       "fernanda@exemplo.com.br",
				Phone:       "(19) 99876-5432",
				Source:      "site",
				Status:      models.LeadStatusInService,
				Finalidade:  "moradia",
				Orcamento:   800000,
				TipoFamilia: "familia",
				QtdPessoas:  4,
				Urgencia:    "alta",
			},
			{
				OwnerID:    ownerID,
				Name:       "Ricardo Alves",
				Phone:      "(19) 98123-4567",
				Source:     "indicacao",
				Status:     models.LeadStatusNew,
				Finalidade: "investimento",
				Orcamento:  500000,
			},
		}
		if err := tx.Create(&leads).Error; err != nil {
			return fmt.Errorf("seed: failed to create leads: %w", err)
		}

		proposal := 760000.0
		next := time.Now().UTC().AddDate(0, 0, 2)
		neg := models.Negotiation{
			OwnerID:       ownerID,
			LeadID:        leads[0].ID,
			PropertyID:    &properties[0].ID,
			Stage:         models.StageProposal,
			ProposalValue: &proposal,
			NextAction:    "retornar sobre a contraproposta",
			NextActionAt:  &next,
		}
		if err := tx.Create(&neg).Error; err != nil {
			return fmt.Errorf("seed: failed to create negotiation: %w", err)
		}

		now := time.Now().UTC()
		activities := []models.Activity{
			{NegotiationID: neg.ID, Kind: models.ActivityWhatsApp, Description: "Primeiro contato pelo site", OccurredAt: now.AddDate(0, 0, -10)},
			{NegotiationID: neg.ID, Kind: models.ActivityVisit, Description: "Visita ao decorado com a família", OccurredAt: now.AddDate(0, 0, -5)},
			{NegotiationID: neg.ID, Kind: models.ActivityNote, Description: "Proposta enviada com entrada de 20%", OccurredAt: now.AddDate(0, 0, -1)},
		}
		if err := tx.Create(&activities).Error; err != nil {
			return fmt.Errorf("seed: failed to create activities: %w", err)
		}

		logging.L().Info("demo data created",
			zap.String("owner_id", ownerID),
			zap.Int("properties", len(properties)),
			zap.Int("leads", len(leads)),
		)
		return nil
	})
}
