package transfermarkt

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const transfersHTML = `
<table class="items"><tbody>
<tr>
  <td>23/24</td>
  <td>Jul 6, 2023</td>
  <td>Real Madrid</td>
  <td>Arda RM Castilla</td>
  <td>-</td>
</tr>
<tr>
  <td>22/23</td>
  <td>Jan 15, 2023</td>
  <td>Fenerbahce U19</td>
  <td>Fenerbahce</td>
  <td>free transfer</td>
</tr>
<tr><td>header junk only</td></tr>
</tbody></table>`

func TestParseTransfers(t *testing.T) {
	transfers := ParseTransfers(docFrom(t, transfersHTML), 7)
	require.Len(t, transfers, 2)

	first := transfers[0]
	assert.Equal(t, int64(7), first.AthleteID)
	assert.Equal(t, time.Date(2023, 7, 6, 0, 0, 0, 0, time.UTC), first.TransferDate)
	assert.Equal(t, "Real Madrid", first.FromClub)
	assert.Equal(t, "Arda RM Castilla", first.ToClub)
	assert.Nil(t, first.Fee, "dash fee degrades to null")
	require.NotNil(t, first.Season)
	assert.Equal(t, "23/24", *first.Season)

	second := transfers[1]
	require.NotNil(t, second.Fee)
	assert.Equal(t, "free transfer", *second.Fee)
}

func TestParseTransfersEmptyPage(t *testing.T) {
	assert.Empty(t, ParseTransfers(docFrom(t, "<html><body><p>blocked</p></body></html>"), 7))
}

const injuriesHTML = `
<table class="items"><tbody>
<tr>
  <td>24/25</td>
  <td>Hamstring injury</td>
  <td>Oct 12, 2024</td>
  <td>Nov 5, 2024</td>
  <td>24 days</td>
  <td>6</td>
</tr>
<tr>
  <td>23/24</td>
  <td>Ankle problems</td>
  <td>Feb 1, 2024</td>
  <td></td>
  <td></td>
  <td></td>
</tr>
</tbody></table>`

func TestParseInjuries(t *testing.T) {
	injuries := ParseInjuries(docFrom(t, injuriesHTML), 3)
	require.Len(t, injuries, 2)

	full := injuries[0]
	assert.Equal(t, "Hamstring injury", full.InjuryType)
	assert.Equal(t, time.Date(2024, 10, 12, 0, 0, 0, 0, time.UTC), full.StartDate)
	require.NotNil(t, full.EndDate)
	require.NotNil(t, full.DaysOut)
	assert.Equal(t, 24, *full.DaysOut)
	require.NotNil(t, full.GamesMissed)
	assert.Equal(t, 6, *full.GamesMissed)

	open := injuries[1]
	assert.Equal(t, "Ankle problems", open.InjuryType)
	assert.Nil(t, open.EndDate, "ongoing injury has no end date")
	assert.Nil(t, open.DaysOut)
}

const marketValueHTML = `
<div class="data-header__club"><a href="/real-madrid">Real Madrid</a></div>
<div class="tm-player-market-value-development__current-value">€45.00m</div>`

func TestParseMarketValue(t *testing.T) {
	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	mv := ParseMarketValue(docFrom(t, marketValueHTML), 7, now)
	require.NotNil(t, mv)

	assert.Equal(t, "€45.00m", mv.Value)
	assert.Equal(t, now, mv.RecordedDate)
	require.NotNil(t, mv.Club)
	assert.Equal(t, "Real Madrid", *mv.Club)
}

func TestParseMarketValueFallbackToBody(t *testing.T) {
	mv := ParseMarketValue(docFrom(t, "<p>Current market value: €8.50m</p>"), 7, time.Now())
	require.NotNil(t, mv)
	assert.Equal(t, "€8.50m", mv.Value)
	assert.Nil(t, mv.Club)
}

func TestParseMarketValueMissing(t *testing.T) {
	assert.Nil(t, ParseMarketValue(docFrom(t, "<p>no numbers here</p>"), 7, time.Now()))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "arda-guler", slugify("Arda Güler"))
	assert.Equal(t, "semih-kilicsoy", slugify("Semih Kılıçsoy"))
}
