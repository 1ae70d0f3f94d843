package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racketdata/ttsync/internal/extract"
)

const divisionsPage = `<html><body>
<select id="divisionSelect">
	<option value="">-- Choisissez une division --</option>
	<option value="8662">Division 1 - NAT - Messieurs</option>
	<option value="8671">Division 2A - NAT - Dames</option>
	<option value="8702">Provinciale Hainaut 3C</option>
</select>
</body></html>`

func TestDivisions(t *testing.T) {
	divisions, errs := extract.Divisions([]byte(divisionsPage))
	require.Empty(t, errs)
	require.Len(t, divisions, 3)

	assert.Equal(t, 0, divisions[0].Index)
	assert.Equal(t, "Division 1 - NAT - Messieurs", divisions[0].Name)
	assert.Equal(t, "8662", divisions[0].UpstreamID.MustGet())
	assert.Equal(t, "NAT", divisions[0].Category.MustGet())
	assert.Equal(t, "Messieurs", divisions[0].Gender.MustGet())

	assert.Equal(t, 1, divisions[1].Index)
	assert.Equal(t, "Dames", divisions[1].Gender.MustGet())

	// A name without the category/gender split stays whole.
	assert.Equal(t, 2, divisions[2].Index)
	assert.Equal(t, "Provinciale Hainaut 3C", divisions[2].Name)
	assert.False(t, divisions[2].Category.Present())
	assert.False(t, divisions[2].Gender.Present())
}

func TestDivisionsNoSelector(t *testing.T) {
	_, errs := extract.Divisions([]byte(`<html><body><p>rien</p></body></html>`))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no division selector")
}

const standingsPage = `<html><body>
<table>
	<tr><th>#</th><th>Equipe</th><th>J</th><th>G</th><th>P</th><th>N</th><th>FF</th><th>Pts</th></tr>
	<tr><td>1</td><td>CTT Mons A</td><td>10</td><td>8</td><td>1</td><td>1</td><td>0</td><td>17</td></tr>
	<tr><td>2</td><td>Arlon TT B</td><td>10</td><td>6</td><td>3</td><td>1</td><td>1</td><td>13</td></tr>
</table>
</body></html>`

// The weekly results grid has no team column and must not be mistaken for
// a standings table.
const resultsGridPage = `<html><body>
<table>
	<tr><th>Semaine</th><th>Rencontre</th><th>Score</th></tr>
	<tr><td>1</td><td>CTT Mons A - Arlon TT B</td><td>9-7</td></tr>
</table>
</body></html>`

func TestDivisionStandings(t *testing.T) {
	standings, errs := extract.DivisionStandings([]byte(standingsPage), 4, "Division 1 - NAT - Messieurs", 10)
	require.Empty(t, errs)
	require.Len(t, standings, 2)

	first := standings[0]
	assert.Equal(t, 4, first.DivisionIndex)
	assert.Equal(t, 10, first.Week)
	assert.Equal(t, "CTT Mons A", first.TeamName)
	assert.Equal(t, "Division 1 - NAT - Messieurs", first.DivisionName.MustGet())
	assert.Equal(t, 1, first.Rank.MustGet())
	assert.Equal(t, 10, first.Played)
	assert.Equal(t, 8, first.Wins)
	assert.Equal(t, 1, first.Losses)
	assert.Equal(t, 1, first.Draws)
	assert.Equal(t, 0, first.Forfeits)
	assert.Equal(t, 17, first.Points)

	assert.Equal(t, 1, standings[1].Forfeits)
}

func TestDivisionStandingsSkipsResultsGrid(t *testing.T) {
	standings, errs := extract.DivisionStandings([]byte(resultsGridPage), 0, "Division 1", 1)
	assert.Empty(t, errs)
	assert.Empty(t, standings)
}

const rankingListPage = `<html><body>
<table id="datatable-messieurs">
	<tr><th>Pos</th><th>Position</th><th>Nom</th><th>Clt</th><th>Club</th><th>Match</th><th>Points</th><th>Action</th></tr>
	<tr>
		<td>1</td><td>412</td><td>MARC DUPONT</td><td>C4</td><td>H004</td><td>18</td><td>861,5</td>
		<td><a href="fiche.php?licenceID=104231">fiche</a></td>
	</tr>
	<tr>
		<td>2</td><td>Inactif</td><td>PAUL LEGRAND</td><td>E2</td><td>H004</td><td>0</td><td>512,0</td>
		<td><input type="hidden" name="licence" value="108556"></td>
	</tr>
</table>
<table id="datatable-dames">
	<tr><th>Pos</th><th>Position</th><th>Nom</th><th>Clt</th><th>Club</th><th>Match</th><th>Points</th><th>Action</th></tr>
	<tr>
		<td>1</td><td>88</td><td>ANNA PEETERS</td><td>B6</td><td>H004</td><td>12</td><td>905,0</td>
		<td>fiche 151411</td>
	</tr>
</table>
</body></html>`

func TestRankingList(t *testing.T) {
	players, errs := extract.RankingList([]byte(rankingListPage), "H004")
	require.Empty(t, errs)
	require.Len(t, players, 3)

	marc := players[0]
	assert.Equal(t, "104231", marc.Licence)
	assert.Equal(t, "MARC DUPONT", marc.Name.MustGet())
	assert.Equal(t, "H004", marc.ClubCode.MustGet())
	assert.Equal(t, "SEN", marc.Category.MustGet())
	assert.Equal(t, "C4", marc.Ranking.MustGet())
	assert.Equal(t, 412, marc.RankingPosition.MustGet())
	assert.Equal(t, 18, marc.MatchesPlayed.MustGet())
	assert.InDelta(t, 861.5, marc.PointsCurrent.MustGet(), 0.001)
	assert.True(t, marc.Active.MustGet())

	// Inactive players carry no numbered position but stay on the list.
	paul := players[1]
	assert.Equal(t, "108556", paul.Licence)
	assert.False(t, paul.Active.MustGet())
	assert.False(t, paul.RankingPosition.Present())
	assert.Equal(t, 0, paul.MatchesPlayed.MustGet())

	// The bare six-digit fallback; women's figures land on the women's
	// bracket fields.
	anna := players[2]
	assert.Equal(t, "151411", anna.Licence)
	assert.Equal(t, "B6", anna.WomenRanking.MustGet())
	assert.InDelta(t, 905.0, anna.WomenPointsCurrent.MustGet(), 0.001)
	assert.False(t, anna.Ranking.Present())
}

func TestRankingListDropsNamelessRow(t *testing.T) {
	page := `<html><body><table id="datatable-messieurs">
		<tr><th>Pos</th><th>Position</th><th>Nom</th><th>Clt</th><th>Club</th><th>Match</th><th>Points</th><th>Action</th></tr>
		<tr><td>1</td><td>5</td><td></td><td>C4</td><td>H004</td><td>3</td><td>600,0</td>
			<td><a href="fiche.php?licenceID=104231">fiche</a></td></tr>
	</table></body></html>`

	players, errs := extract.RankingList([]byte(page), "H004")
	assert.Empty(t, players)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "104231")
}
