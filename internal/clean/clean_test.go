package clean

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/config"
	"github.com/sells-group/leadscore/internal/lookup"
	"github.com/sells-group/leadscore/internal/model"
)

func newCleaner() *Cleaner {
	return New(config.Default().Pipeline, lookup.MustDefault())
}

func TestText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"  Jane   Doe  ", "Jane Doe"},
		{"Jane\tDoe\n", "Jane Doe"},
		{"Acme\x00 Corp\x07", "Acme Corp"},
		{"-- Sales Lead ;", "Sales Lead"},
		{"\"Acme\"", "Acme"},
		{"Acme Inc.", "Acme Inc."},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestName(t *testing.T) {
	c := newCleaner()

	assert.Equal(t, "Jane Doe", c.Name("dr. jane doe"))
	assert.Equal(t, "Jane Doe", c.Name("Mrs  JANE   DOE"))
	assert.Equal(t, "Mary-Jane Watson", c.Name("mary-jane watson"))
	assert.Equal(t, "Dr.", c.Name("dr."), "a lone honorific is kept")
}

func TestName_KeepsDeliberateCasing(t *testing.T) {
	c := newCleaner()

	tests := []struct {
		in   string
		want string
	}{
		{"dr. o'neil-SMITH", "O'Neil-Smith"},
		{"Ronald McDonald", "Ronald McDonald"},
		{"DeShawn JONES", "DeShawn Jones"},
		{"d'angelo russell", "D'Angelo Russell"},
		{"O'Neil-Smith", "O'Neil-Smith"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Name(tt.in))
		})
	}
}

func TestEmail(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "jane.doe@acme.io", Email(" Jane .Doe@ACME.io "))
	assert.Equal(t, "jane.doe@acme.io", Email("jane..doe@@acme.io"))
	assert.Equal(t, "jane@acme.io", Email("mailto:jane@acme.io."))
}

func TestCompany(t *testing.T) {
	c := newCleaner()

	tests := []struct {
		in   string
		want string
	}{
		{"acme incorporated", "Acme Inc."},
		{"ACME CORPORATION", "ACME Corp."},
		{"Initech, inc", "Initech, Inc."},
		{"ibm", "Ibm"},
		{"IBM", "IBM"},
		{"bank of america corp", "Bank of America Corp."},
		{"McKinsey & Company", "McKinsey & Co."},
		{"widgets llc", "Widgets LLC"},
		{"Inc", "Inc"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Company(tt.in))
		})
	}
}

func TestJobTitle(t *testing.T) {
	c := newCleaner()

	tests := []struct {
		in   string
		want string
	}{
		{"sr. software engineer", "Senior Software Engineer"},
		{"ceo", "CEO"},
		{"Co-founder & cto", "Co-Founder & CTO"},
		{"vp of sales", "VP of Sales"},
		{"Director, it", "Director, IT"},
		{"Jr Developer", "Junior Developer"},
		{"V.P. Marketing", "VP Marketing"},
		{"head of r&d", "Head of R&D"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, c.JobTitle(tt.in))
		})
	}
}

func TestLocation(t *testing.T) {
	c := newCleaner()

	tests := []struct {
		in   string
		want string
	}{
		{"san francisco, california", "San Francisco, CA"},
		{"Austin,, tx ,", "Austin, TX"},
		{"New York, NY, united states", "New York, NY, USA"},
		{"California", "CA"},
		{"london, u.k.", "London, UK"},
		{"NYC", "NYC"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Location(tt.in))
		})
	}
}

func TestIndustry(t *testing.T) {
	c := newCleaner()

	assert.Equal(t, "technology", c.Industry("Computer Software"))
	assert.Equal(t, "financial-services", c.Industry("Financial Services"))
	assert.Equal(t, "healthcare", c.Industry("health care"))
	assert.Equal(t, "e-commerce", c.Industry("Online Retail"))
	assert.Equal(t, "Hospitality", c.Industry("  Hospitality "))
	assert.Equal(t, "", c.Industry(""))
}

func sampleRecords() []model.Record {
	return []model.Record{
		{Index: 1, Name: "dr. jane  doe", Email: " Jane@Acme.IO ", Company: "acme incorporated",
			JobTitle: "sr. vp of sales", Location: "austin,, texas", Industry: "SaaS"},
		{Index: 2, Name: "JOHN O'NEIL-SMITH", Email: "john..smith@@initech.com", Company: "INITECH LLC",
			JobTitle: "Co-founder & cto", Location: "london, u.k.", Industry: "Hospitality"},
		{Index: 3, Name: "Ms. Ann Lee", Email: "ann@hooli.com.", Company: "Hooli, inc",
			JobTitle: "head of r&d", Location: "", Industry: "health care"},
	}
}

func TestClean_Idempotent(t *testing.T) {
	c := newCleaner()
	ctx := context.Background()

	once, _, err := c.Clean(ctx, sampleRecords())
	require.NoError(t, err)
	twice, issues, err := c.Clean(ctx, once)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Empty(t, issues)
}

func TestClean_Deduplicates(t *testing.T) {
	c := newCleaner()

	records := []model.Record{
		{Index: 1, Name: "Jane Doe", Email: "Jane@Acme.io", Company: "Acme", JobTitle: "CEO"},
		{Index: 2, Name: "Janet D", Email: " jane@acme.io", Company: "Other", JobTitle: "CTO"},
		{Index: 3, Name: "Bob Roe", Email: "bob@acme.io", Company: "Acme", JobTitle: "CFO"},
	}

	out, issues, err := c.Clean(context.Background(), records)
	require.NoError(t, err)

	require.Len(t, out, 2)
	assert.Equal(t, "Jane Doe", out[0].Name, "first occurrence wins")
	assert.Equal(t, "Acme", out[0].Company)
	assert.Equal(t, 3, out[1].Index)
	require.Len(t, issues, 1)
	assert.Equal(t, model.SeverityError, issues[0].Severity)
	assert.Equal(t, 2, issues[0].RowIndex)
	assert.Equal(t, "duplicate email", issues[0].Reason)
}

func TestClean_PreservesOrder(t *testing.T) {
	cfg := config.Default().Pipeline
	cfg.Workers = 8
	c := New(cfg, lookup.MustDefault())

	records := make([]model.Record, 200)
	for i := range records {
		records[i] = model.Record{
			Index:    i + 1,
			Name:     "person name",
			Email:    strings.Repeat("a", i%7+1) + "@" + strings.Repeat("b", i/7+1) + ".io",
			Company:  "acme",
			JobTitle: "engineer",
		}
	}

	out, _, err := c.Clean(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, out, 200)
	for i, r := range out {
		assert.Equal(t, i+1, r.Index)
	}
}

func TestClean_Truncates(t *testing.T) {
	c := newCleaner()

	records := []model.Record{{
		Index: 1, Name: "Jane Doe", Email: "jane@acme.io",
		Company: "acme " + strings.Repeat("x", 300), JobTitle: "CEO",
	}}

	out, issues, err := c.Clean(context.Background(), records)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.LessOrEqual(t, len([]rune(out[0].Company)), 200)
	require.Len(t, issues, 1)
	assert.Equal(t, "company truncated to 200 characters", issues[0].Reason)
}

func TestClean_Cancelled(t *testing.T) {
	c := newCleaner()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := c.Clean(ctx, sampleRecords())
	assert.Error(t, err)
}
