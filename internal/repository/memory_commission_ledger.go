package repository

import (
	"fmt"
	"sort"
	"strings"

	"github.com/affiliate-next/internal/models"
)

type ledgerSlot struct {
	seq    uint64
	record models.CommissionRecord
}

// MemoryCommissionLedger 内存佣金账本，按推广用户与自然日分桶
type MemoryCommissionLedger struct {
	seq         uint64
	ids         map[string]struct{}
	byAffiliate map[string]map[string][]ledgerSlot
}

// NewMemoryCommissionLedger 创建内存佣金账本
func NewMemoryCommissionLedger() *MemoryCommissionLedger {
	return &MemoryCommissionLedger{
		ids:         make(map[string]struct{}),
		byAffiliate: make(map[string]map[string][]ledgerSlot),
	}
}

// Append 追加佣金记录
func (l *MemoryCommissionLedger) Append(record models.CommissionRecord) error {
	id := strings.TrimSpace(record.ID)
	if id == "" {
		return fmt.Errorf("commission record id is empty")
	}
	if _, exists := l.ids[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCommissionRecord, id)
	}
	record.Options = record.Options.Clone()

	days, ok := l.byAffiliate[record.AffiliateID]
	if !ok {
		days = make(map[string][]ledgerSlot)
		l.byAffiliate[record.AffiliateID] = days
	}
	l.seq++
	day := record.DayBucket()
	days[day] = append(days[day], ledgerSlot{seq: l.seq, record: record})
	l.ids[id] = struct{}{}
	return nil
}

// Query 查询推广用户的佣金记录
func (l *MemoryCommissionLedger) Query(affiliateID string, filter CommissionLedgerFilter) (CommissionLedgerPage, error) {
	limit, offset := NormalizeLedgerWindow(filter.Limit, filter.Offset)
	page := CommissionLedgerPage{Records: []models.CommissionRecord{}, Limit: limit, Offset: offset}

	days := l.byAffiliate[affiliateID]
	if len(days) == 0 {
		return page, nil
	}

	var startDay, endDay string
	if filter.StartDate != nil {
		startDay = filter.StartDate.UTC().Format("2006-01-02")
	}
	if filter.EndDate != nil {
		endDay = filter.EndDate.UTC().Format("2006-01-02")
	}

	matched := make([]ledgerSlot, 0)
	for day, slots := range days {
		if startDay != "" && day < startDay {
			continue
		}
		if endDay != "" && day > endDay {
			continue
		}
		for _, slot := range slots {
			if inDateRange(slot.record, filter) {
				matched = append(matched, slot)
			}
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		left, right := matched[i].record.Timestamp, matched[j].record.Timestamp
		if !left.Equal(right) {
			return left.After(right)
		}
		return matched[i].seq < matched[j].seq
	})

	page.Total = int64(len(matched))
	page.HasMore = hasMorePages(limit, offset, page.Total)
	if offset >= len(matched) {
		return page, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	for _, slot := range matched[offset:end] {
		record := slot.record
		record.Options = record.Options.Clone()
		page.Records = append(page.Records, record)
	}
	return page, nil
}

// Clear 清空账本
func (l *MemoryCommissionLedger) Clear() error {
	l.ids = make(map[string]struct{})
	l.byAffiliate = make(map[string]map[string][]ledgerSlot)
	l.seq = 0
	return nil
}

// Len 当前记录总数
func (l *MemoryCommissionLedger) Len() int {
	return len(l.ids)
}
