package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscore/internal/lookup"
	"github.com/sells-group/leadscore/internal/model"
)

func newEnricher() *Enricher {
	return New(lookup.MustDefault(), 4)
}

func TestCompanySize(t *testing.T) {
	e := newEnricher()

	tests := []struct {
		company string
		want    string
	}{
		{"Microsoft", model.SizeEnterprise},
		{"MICROSOFT CORPORATION", model.SizeEnterprise},
		{"Stripe, Inc.", model.SizeLarge},
		{"Notion Labs", model.SizeMid},
		{"Johnson & Johnson", model.SizeEnterprise},
		{"Monday.com", model.SizeLarge},
		{"Railway Corp.", model.SizeMicro},
		{"Acme Widgets", model.SizeUnknown},
		{"Metadata Inc.", model.SizeUnknown},
		{"", model.SizeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.company, func(t *testing.T) {
			assert.Equal(t, tt.want, e.CompanySize(tt.company))
		})
	}
}

func TestCompanySize_OverriddenTables(t *testing.T) {
	tables, err := lookup.Parse([]byte(`
tables:
  company_sizes:
    Initech: 200-1000
  job_title_rules:
    - points: 10
      keywords: [ceo]
`))
	require.NoError(t, err)

	e := New(tables, 1)
	assert.Equal(t, model.SizeMid, e.CompanySize("Initech LLC"))
	assert.Equal(t, model.SizeUnknown, e.CompanySize("Microsoft"))
}

func TestIndustry(t *testing.T) {
	e := newEnricher()

	assert.Equal(t, "technology", e.Industry("Acme Software"))
	assert.Equal(t, "financial-services", e.Industry("Goldman Sachs"))
	assert.Equal(t, "healthcare", e.Industry("Pfizer"))
	assert.Equal(t, "e-commerce", e.Industry("Etsy"))
	assert.Equal(t, "consulting", e.Industry("Bain Advisory"))
	assert.Equal(t, model.IndustryUnspecified, e.Industry("Dunder Mifflin"))
}

func TestIndustry_CompoundNames(t *testing.T) {
	e := newEnricher()

	tests := []struct {
		company string
		want    string
	}{
		{"TechCorp", "technology"},
		{"DataStream", "technology"},
		{"FinTechify", "technology"},
		{"HealthFirst Inc", "healthcare"},
		{"ShopMart", "e-commerce"},
		{"Bain Capital", "financial-services"},
		{"Hospitality Partners", model.IndustryUnspecified},
	}
	for _, tt := range tests {
		t.Run(tt.company, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Industry(tt.company))
		})
	}
}

func TestLinkedInURL(t *testing.T) {
	t.Parallel()

	url, ok := LinkedInURL("Jane  Mary Doe")
	assert.True(t, ok)
	assert.Equal(t, "https://www.linkedin.com/in/jane-mary-doe", url)

	url, ok = LinkedInURL("   ")
	assert.False(t, ok)
	assert.Equal(t, "https://www.linkedin.com/in/unknown", url)
}

func TestEnrich(t *testing.T) {
	e := newEnricher()

	lead := model.Lead{ID: 1, Name: "Jane Doe", Email: "jane@microsoft.com", Company: "Microsoft", JobTitle: "CEO"}
	got, warnings := e.Enrich(lead)

	assert.Empty(t, warnings)
	assert.Equal(t, model.SizeEnterprise, got.CompanySize)
	assert.Equal(t, "technology", got.Industry)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", got.LinkedInURL)
	require.NotNil(t, got.EmailValid)
	assert.True(t, *got.EmailValid)
	assert.True(t, got.Enriched)

	assert.Nil(t, lead.EmailValid, "input is not mutated")
}

func TestEnrich_KeepsSuppliedValues(t *testing.T) {
	e := newEnricher()

	lead := model.Lead{
		ID: 1, Name: "Jane Doe", Email: "jane@nodomain", Company: "Microsoft",
		JobTitle: "CEO", Industry: "Hospitality", CompanySize: model.SizeSmall,
	}
	got, _ := e.Enrich(lead)

	assert.Equal(t, model.SizeSmall, got.CompanySize)
	assert.Equal(t, "Hospitality", got.Industry)
	require.NotNil(t, got.EmailValid)
	assert.False(t, *got.EmailValid)
}

func TestEnrichAll(t *testing.T) {
	e := newEnricher()

	leads := []model.Lead{
		{ID: 1, RowIndex: 1, Name: "Jane Doe", Email: "jane@acme.io", Company: "Acme", JobTitle: "CEO"},
		{ID: 2, RowIndex: 4, Name: "", Email: "x@acme.io", Company: "Stripe", JobTitle: "Manager"},
		{ID: 3, RowIndex: 5, Name: "Bo Kim", Email: "bo@acme.io", Company: "Etsy", JobTitle: "Analyst"},
	}

	out, issues, err := e.EnrichAll(context.Background(), leads)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, l := range out {
		assert.Equal(t, i+1, l.ID)
		assert.True(t, l.Enriched)
		assert.NotNil(t, l.EmailValid)
	}
	assert.Equal(t, model.SizeUnknown, out[0].CompanySize)
	assert.Equal(t, model.IndustryUnspecified, out[0].Industry)

	require.Len(t, issues, 1)
	assert.Equal(t, 4, issues[0].RowIndex)
	assert.Equal(t, model.StageEnrichment, issues[0].Stage)
	assert.Equal(t, "name yields no profile slug", issues[0].Reason)
}
