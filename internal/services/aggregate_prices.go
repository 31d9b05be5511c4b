package services

import (
	"bytes"
	"encoding/json"
	"log"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/the-medo/swu-collection/backend/internal/metrics"
	"github.com/the-medo/swu-collection/backend/internal/models"
)

// priceDecimals is the precision of every stored currency amount
const priceDecimals = 2

// JoinedLine is one ownership line left-joined with a matching price snapshot.
// SourceType is nil when no snapshot exists for the line's card variant.
type JoinedLine struct {
	EntityID   string
	CardID     string
	VariantID  string
	Foil       bool
	Condition  models.Condition
	Language   models.CardLanguage
	Quantity   int
	SourceType *string
	Price      decimal.NullDecimal
	Data       *string
}

// AggregateRow is the computed value of one entity under one source type
type AggregateRow struct {
	EntityID     string
	SourceType   models.SourceType
	Price        decimal.Decimal
	PriceMissing int
	Data         map[string]decimal.Decimal
	DataMissing  map[string]int
}

// lineKey identifies a physical ownership line independent of the source it was joined with
type lineKey struct {
	cardID    string
	variantID string
	foil      bool
	condition models.Condition
	language  models.CardLanguage
}

func (l JoinedLine) key() lineKey {
	return lineKey{
		cardID:    l.CardID,
		variantID: l.VariantID,
		foil:      l.Foil,
		condition: l.Condition,
		language:  l.Language,
	}
}

type sourceAccumulator struct {
	price     decimal.Decimal
	pricedQty int
	data      map[string]decimal.Decimal
	dataQty   map[string]int
	keys      map[string]struct{}
}

func newSourceAccumulator() *sourceAccumulator {
	return &sourceAccumulator{
		price:   decimal.Zero,
		data:    make(map[string]decimal.Decimal),
		dataQty: make(map[string]int),
		keys:    make(map[string]struct{}),
	}
}

// AggregateEntities computes aggregate rows for every entity in entityIDs.
// Lines belonging to entities outside entityIDs are ignored. An entity with no lines
// still receives the default zero rows.
func AggregateEntities(entityIDs []string, lines []JoinedLine) []AggregateRow {
	byEntity := make(map[string][]JoinedLine, len(entityIDs))
	for _, l := range lines {
		byEntity[l.EntityID] = append(byEntity[l.EntityID], l)
	}

	rows := make([]AggregateRow, 0, len(entityIDs)*len(models.DefaultSourceTypes()))
	seen := make(map[string]bool, len(entityIDs))
	for _, id := range entityIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, AggregateEntity(id, byEntity[id])...)
	}
	return rows
}

// AggregateEntity computes one row per source type found among the entity's joined lines.
// Currency sums are kept at full precision and rounded to two decimals once at the end.
// Missing counts are measured against the entity's total quantity and never go below zero.
func AggregateEntity(entityID string, lines []JoinedLine) []AggregateRow {
	totalQty := 0
	counted := make(map[lineKey]bool)
	sources := make(map[models.SourceType]*sourceAccumulator)
	malformed := 0

	for _, l := range lines {
		if k := l.key(); !counted[k] {
			counted[k] = true
			totalQty += l.Quantity
		}

		if l.SourceType == nil {
			continue
		}
		source := models.SourceType(*l.SourceType)
		acc, ok := sources[source]
		if !ok {
			acc = newSourceAccumulator()
			sources[source] = acc
		}

		qty := decimal.NewFromInt(int64(l.Quantity))
		if l.Price.Valid {
			acc.price = acc.price.Add(l.Price.Decimal.Mul(qty))
			acc.pricedQty += l.Quantity
		}

		if l.Data == nil {
			continue
		}
		values, bad := parseSubMetrics(*l.Data)
		malformed += bad
		// A key whose value is null or unparseable adds nothing to the sum but stays observed,
		// so it is reported in data and its quantity counts toward dataMissing.
		for key, value := range values {
			acc.keys[key] = struct{}{}
			if value == nil {
				continue
			}
			acc.data[key] = acc.data[key].Add(value.Mul(qty))
			acc.dataQty[key] += l.Quantity
		}
	}

	if malformed > 0 {
		log.Printf("Price aggregator: entity %s had %d unparseable sub-metric values, skipped", entityID, malformed)
		metrics.AggregateMalformedKeys.Add(float64(malformed))
	}

	if len(sources) == 0 {
		return defaultRows(entityID)
	}

	rows := make([]AggregateRow, 0, len(sources))
	for source, acc := range sources {
		row := AggregateRow{
			EntityID:     entityID,
			SourceType:   source,
			Price:        acc.price.Round(priceDecimals),
			PriceMissing: clampMissing(totalQty - acc.pricedQty),
			Data:         make(map[string]decimal.Decimal, len(acc.keys)),
			DataMissing:  make(map[string]int, len(acc.keys)),
		}
		for key := range acc.keys {
			row.Data[key] = acc.data[key].Round(priceDecimals)
			row.DataMissing[key] = clampMissing(totalQty - acc.dataQty[key])
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].SourceType < rows[j].SourceType })
	return rows
}

// defaultRows is what an entity without a single matched snapshot stores for each expected source
func defaultRows(entityID string) []AggregateRow {
	sources := models.DefaultSourceTypes()
	rows := make([]AggregateRow, 0, len(sources))
	for _, source := range sources {
		rows = append(rows, AggregateRow{
			EntityID:     entityID,
			SourceType:   source,
			Price:        decimal.Zero,
			PriceMissing: 0,
			Data:         map[string]decimal.Decimal{},
			DataMissing:  map[string]int{},
		})
	}
	return rows
}

func clampMissing(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// parseSubMetrics decodes a snapshot's data payload.
// Every key present in the payload is returned; its value is nil when the source reported
// null or when the value could not be read as a number. The second result counts the latter.
func parseSubMetrics(raw string) (map[string]*decimal.Decimal, int) {
	if raw == "" {
		return nil, 0
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		log.Printf("Price aggregator: ignoring unparseable data payload: %v", err)
		return nil, 1
	}

	out := make(map[string]*decimal.Decimal, len(fields))
	malformed := 0
	for key, value := range fields {
		value = bytes.TrimSpace(value)
		if len(value) == 0 || bytes.Equal(value, []byte("null")) {
			out[key] = nil
			continue
		}

		text := string(value)
		if value[0] == '"' {
			if err := json.Unmarshal(value, &text); err != nil {
				out[key] = nil
				malformed++
				continue
			}
		}

		d, err := decimal.NewFromString(text)
		if err != nil {
			out[key] = nil
			malformed++
			continue
		}
		out[key] = &d
	}
	return out, malformed
}
