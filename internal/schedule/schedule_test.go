package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vacciassist/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		name  string
		birth time.Time
		ref   time.Time
		want  int
	}{
		{"same day", date(2025, 1, 10), date(2025, 1, 10), 0},
		{"two months", date(2025, 1, 10), date(2025, 3, 10), 2},
		{"day ignored", date(2025, 1, 31), date(2025, 2, 1), 1},
		{"across years", date(2023, 11, 5), date(2025, 2, 5), 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MonthsBetween(tt.birth, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMonthsBetweenFutureBirth(t *testing.T) {
	_, err := MonthsBetween(date(2025, 6, 2), date(2025, 6, 1))
	assert.ErrorIs(t, err, domain.ErrInvalidBirthDate)
}

func TestLookupBrackets(t *testing.T) {
	table := PNI()
	tests := []struct {
		months int
		first  string
	}{
		{0, "BCG"},
		{1, "BCG"},
		{2, "Penta (1ª)"},
		{3, "Penta (1ª)"},
		{4, "Penta (2ª)"},
		{6, "Penta (3ª)"},
		{8, "Penta (3ª)"},
		{9, "Febre Amarela"},
		{10, "Verificar Reforços e Campanhas Anuais"},
		{11, "Verificar Reforços e Campanhas Anuais"},
		{12, "Tríplice Viral"},
		{14, "Tríplice Viral"},
		{15, "DTP"},
		{47, "DTP"},
		{48, "Verificar Reforços e Campanhas Anuais"},
	}
	for _, tt := range tests {
		got := table.Lookup(tt.months)
		require.NotEmpty(t, got, "months=%d", tt.months)
		assert.Equal(t, tt.first, got[0], "months=%d", tt.months)
	}
}

func TestRecommendTwoMonthsOld(t *testing.T) {
	rec, err := PNI().Recommend(date(2025, 1, 15), date(2025, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Months)
	assert.Equal(t, []string{"Penta (1ª)", "VIP (1ª)", "Rotavírus (1ª)", "Pneumo-10 (1ª)"}, rec.Vaccines)
}

func TestLookupReturnsCopy(t *testing.T) {
	table := PNI()
	got := table.Lookup(0)
	got[0] = "changed"
	assert.Equal(t, "BCG", table.Lookup(0)[0])
}

func TestParseRejectsOverlap(t *testing.T) {
	_, err := Parse([]byte(`
brackets:
  - {min_months: 0, max_months: 3, vaccines: [A]}
  - {min_months: 3, max_months: 5, vaccines: [B]}
fallback: [C]
`))
	assert.Error(t, err)
}

func TestParseRejectsInvertedBracket(t *testing.T) {
	_, err := Parse([]byte(`
brackets:
  - {min_months: 5, max_months: 2, vaccines: [A]}
fallback: [C]
`))
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 29), d)

	_, err = ParseDate("29/02/2024")
	assert.ErrorIs(t, err, domain.ErrInvalidBirthDate)
}
