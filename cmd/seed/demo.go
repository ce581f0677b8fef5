package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/affiliate-next/internal/config"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"
	"github.com/affiliate-next/internal/service"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

const demoMemoryDSN = "file:commission_seed?mode=memory&cache=shared"

var (
	demoAffiliates int
	demoDSN        string
)

type demoTransaction struct {
	Amount  int64
	Product string
}

var demoTransactions = []demoTransaction{
	{Amount: 500, Product: "Product A"},
	{Amount: 1200, Product: "Product B"},
	{Amount: 800, Product: "Product C"},
	{Amount: 2000, Product: "Product D"},
	{Amount: 1500, Product: "Product E"},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "创建演示推广用户并回放演示交易",
	Long: `创建若干不同等级与历史销售额的推广用户，逐笔回放演示交易，
输出每个推广用户的佣金统计，最后上调等级比例并演示调整不影响已入账佣金。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		return runDemo(cmd.Context(), cmd.OutOrStdout(), cfg, demoDSN, demoAffiliates)
	},
}

func init() {
	demoCmd.Flags().IntVar(&demoAffiliates, "affiliates", 3, "演示推广用户数量")
	demoCmd.Flags().StringVar(&demoDSN, "dsn", demoMemoryDSN, "SQLite DSN，默认使用内存库")
}

func runDemo(ctx context.Context, out io.Writer, cfg *config.Config, dsn string, count int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if count < 1 {
		return fmt.Errorf("affiliates must be positive")
	}
	db, err := models.OpenDB("sqlite", dsn, models.DBPoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		return err
	}
	if err := models.AutoMigrate(db); err != nil {
		return err
	}

	repo := repository.NewAffiliateRepository(db)
	affiliates := service.NewAffiliateService(repo)
	setting := service.CommissionSettingFromConfig(cfg.Commission)
	setting.MultiTier = true
	engine, err := service.NewCommissionEngine(setting, repository.NewMemoryCommissionLedger(),
		service.WithAffiliateSnapshotProvider(service.NewRepositoryAffiliateSnapshotProvider(repo)),
		service.WithAffiliateStatsUpdater(service.NewRepositoryAffiliateStatsUpdater(repo)),
	)
	if err != nil {
		return err
	}
	defer func() {
		_ = engine.Shutdown(context.Background())
	}()

	tierCount := len(engine.TierStructure())
	profiles := make([]*models.AffiliateProfile, 0, count)
	for i := 1; i <= count; i++ {
		tier := i
		if tierCount > 0 && tier > tierCount {
			tier = tierCount
		}
		profile, err := affiliates.CreateAffiliate(service.CreateAffiliateInput{
			Name:       fmt.Sprintf("Affiliate %d", i),
			Email:      fmt.Sprintf("affiliate%d@example.com", i),
			Tier:       tier,
			TotalSales: decimal.NewFromInt(int64(i) * 2000),
		})
		if err != nil {
			return err
		}
		profiles = append(profiles, profile)
		fmt.Fprintf(out, "created %s (%s) tier=%d total_sales=%s\n", profile.Name, profile.ID, profile.Tier, profile.TotalSales)
	}

	since := time.Now().AddDate(0, 0, -30)
	for _, profile := range profiles {
		fmt.Fprintf(out, "\n%s transactions:\n", profile.Name)
		for i, tx := range demoTransactions {
			record, err := engine.TrackCommission(ctx, profile.ID, service.TrackCommissionInput{
				Amount:        decimal.NewFromInt(tx.Amount),
				TransactionID: fmt.Sprintf("TXN-%s-%d", profile.ID, i+1),
				CustomerID:    fmt.Sprintf("CUST%d", i+1),
				ProductID:     tx.Product,
				Options:       models.JSON{"category": "electronics"},
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "  %-10s %8s -> %8s (%s%%)\n", tx.Product, record.Amount.StringFixed(2), record.TotalCommission.StringFixed(2), record.CommissionRate)
		}

		stats, err := engine.GetCommissionStats(ctx, profile.ID, service.StatsQuery{StartDate: &since})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  total=%s sales=%s average=%s count=%d\n",
			stats.TotalCommissions.StringFixed(2),
			stats.TotalAmount.StringFixed(2),
			stats.AverageCommission.StringFixed(2),
			stats.CommissionCount,
		)
		if stats.TierInfo != nil {
			fmt.Fprintf(out, "  tier=%s (level %d)\n", stats.TierInfo.Name, stats.TierInfo.Level)
		}
	}

	// 上调所有等级比例，已入账佣金保持不变
	upgraded := engine.TierStructure()
	for i := range upgraded {
		upgraded[i].Rate = upgraded[i].Rate.Add(decimal.NewFromInt(5))
	}
	if _, err := engine.UpdateTierStructure(ctx, upgraded); err != nil {
		return err
	}
	fmt.Fprintln(out, "\ntier structure upgraded:")
	for _, tier := range engine.TierStructure() {
		fmt.Fprintf(out, "  level %d %s -> %s%%\n", tier.Level, tier.Name, tier.Rate)
	}

	last := profiles[len(profiles)-1]
	history, err := engine.GetCommissionHistory(ctx, last.ID, service.HistoryQuery{Limit: 1})
	if err != nil {
		return err
	}
	preview, err := engine.CalculateCommission(ctx, last.ID, decimal.NewFromInt(1000), models.JSON{"preview": true})
	if err != nil {
		return err
	}
	if len(history.History) > 0 {
		fmt.Fprintf(out, "latest recorded rate for %s stays %s%%, new rate %s%%\n",
			last.Name, history.History[0].CommissionRate, preview.CommissionRate)
	}
	return nil
}
