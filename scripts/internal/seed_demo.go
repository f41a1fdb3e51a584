package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/netbill/netbill/internal/domain/customer"
	"github.com/netbill/netbill/internal/domain/plan"
	"github.com/netbill/netbill/internal/domain/subscription"
	"github.com/netbill/netbill/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type demoPlan struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	SpeedMbps int             `json:"speed_mbps"`
}

type demoCustomer struct {
	DNI       string `json:"dni"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	Phone     string `json:"phone"`
	// Plan is the name of the plan the customer subscribes to
	Plan string `json:"plan"`
}

type demoData struct {
	Plans     []demoPlan     `json:"plans"`
	Customers []demoCustomer `json:"customers"`
}

// SeedDemoData creates the plans and customers of DEMO_FILE, each customer with an active subscription
func SeedDemoData() error {
	path := os.Getenv("DEMO_FILE")
	if path == "" {
		return fmt.Errorf("demo-file is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read demo file: %w", err)
	}
	var data demoData
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse demo file: %w", err)
	}

	deps, err := newScriptDeps()
	if err != nil {
		return err
	}
	defer deps.Close()

	ctx := types.SetUserID(context.Background(), "seed-script")
	plansByName := make(map[string]*plan.Plan, len(data.Plans))

	for _, dp := range data.Plans {
		p := &plan.Plan{
			ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
			Name:      dp.Name,
			Price:     dp.Price,
			SpeedMbps: dp.SpeedMbps,
			BaseModel: types.GetDefaultBaseModel(ctx),
		}
		if err := deps.params.PlanRepo.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to create plan %s: %w", dp.Name, err)
		}
		plansByName[p.Name] = p
		log.Printf("created plan %s (%s) at %s\n", p.Name, p.ID, p.Price.StringFixed(2))
	}

	missing := lo.Filter(data.Customers, func(c demoCustomer, _ int) bool {
		_, ok := plansByName[c.Plan]
		return !ok
	})
	if len(missing) > 0 {
		return fmt.Errorf("customers reference unknown plans: %v", lo.Map(missing, func(c demoCustomer, _ int) string {
			return c.Plan
		}))
	}

	start := types.NormalizeDay(time.Now())
	for _, dc := range data.Customers {
		c := &customer.Customer{
			ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
			DNI:       dc.DNI,
			FirstName: dc.FirstName,
			LastName:  dc.LastName,
			Email:     dc.Email,
			Address:   dc.Address,
			City:      dc.City,
			Phone:     dc.Phone,
			BaseModel: types.GetDefaultBaseModel(ctx),
		}

		p := plansByName[dc.Plan]
		sub := &subscription.Subscription{
			ID:         types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
			CustomerID: c.ID,
			PlanID:     p.ID,
			Status:     types.SubscriptionStatusActive,
			StartDate:  start,
			BaseModel:  types.GetDefaultBaseModel(ctx),
		}

		err := deps.params.DB.WithTx(ctx, func(ctx context.Context) error {
			if err := deps.params.CustomerRepo.Create(ctx, c); err != nil {
				return err
			}
			return deps.params.SubRepo.Create(ctx, sub)
		})
		if err != nil {
			return fmt.Errorf("failed to create customer %s: %w", dc.DNI, err)
		}
		log.Printf("created customer %s on plan %s\n", c.FullName(), p.Name)
	}

	return nil
}
