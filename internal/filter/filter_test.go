package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formdist/internal/form"
	"formdist/internal/npc"
)

type character struct {
	ids      []npc.Identity
	name     string
	race     *form.Form
	level    uint16
	sex      npc.Sex
	unique   bool
	child    bool
	keywords []string
}

func (c *character) Identities() []npc.Identity { return c.ids }
func (c *character) Name() string               { return c.name }
func (c *character) Race() *form.Form           { return c.race }
func (c *character) Level() uint16              { return c.level }
func (c *character) Sex() npc.Sex               { return c.sex }
func (c *character) IsUnique() bool             { return c.unique }
func (c *character) IsSummonable() bool         { return false }
func (c *character) IsChild() bool              { return c.child }
func (c *character) IsLeveled() bool            { return false }
func (c *character) IsTeammate() bool           { return false }
func (c *character) Keywords() []string         { return c.keywords }
func (c *character) HasForm(f *form.Form) bool  { return false }

var nord = &form.Form{ID: 0x13746, EditorID: "NordRace", Type: form.TypeRace}

func guard(level uint16) *npc.Snapshot {
	return npc.New(&character{
		ids:      []npc.Identity{{ID: 0x1A66B, EditorID: "WhiterunGuard", File: "Skyrim.esm"}},
		name:     "Whiterun Guard",
		race:     nord,
		level:    level,
		sex:      npc.SexMale,
		keywords: []string{"ActorTypeNPC", "Guard"},
	})
}

func TestEmptyPredicateMatches(t *testing.T) {
	var d Data
	assert.True(t, d.IsEmpty())
	assert.True(t, Matches(guard(1), &d, Fixed(99.9)))
}

func TestStringClauses(t *testing.T) {
	tests := []struct {
		name    string
		strings Strings
		want    Result
		clause  Clause
	}{
		{name: "all present", strings: Strings{All: []string{"guard", "ActorTypeNPC"}}, want: Pass},
		{name: "all missing one", strings: Strings{All: []string{"guard", "Bandit"}}, want: Fail, clause: ClauseStringsAll},
		{name: "not present", strings: Strings{Not: []string{"Bandit", "Guard"}}, want: Fail, clause: ClauseStringsNot},
		{name: "not absent", strings: Strings{Not: []string{"Bandit"}}, want: Pass},
		{name: "match one", strings: Strings{Match: []string{"Bandit", "WhiterunGuard"}}, want: Pass},
		{name: "match none", strings: Strings{Match: []string{"Bandit"}}, want: Fail, clause: ClauseStringsMatch},
		{name: "any substring", strings: Strings{Any: []string{"runguar"}}, want: Pass},
		{name: "any none", strings: Strings{Any: []string{"dragon"}}, want: Fail, clause: ClauseStringsAny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Data{Strings: tt.strings}
			result, clause := d.Evaluate(guard(10), Fixed(0))
			assert.Equal(t, tt.want, result)
			assert.Equal(t, tt.clause, clause)
		})
	}
}

func TestNotFailureIsAbsolute(t *testing.T) {
	d := Data{
		Strings: Strings{Match: []string{"Guard"}, Not: []string{"ActorTypeNPC"}},
		Chance:  Percent(100),
	}
	result, clause := d.Evaluate(guard(10), Fixed(0))
	assert.Equal(t, Fail, result)
	assert.Equal(t, ClauseStringsNot, clause)
}

func TestFormClauses(t *testing.T) {
	keyword := &form.Form{ID: 0x900, EditorID: "Guard", Type: form.TypeKeyword}
	other := &form.Form{ID: 0x901, EditorID: "Vampire", Type: form.TypeKeyword}
	skyrim := &form.File{Name: "Skyrim.esm", Index: 0}
	dawnguard := &form.File{Name: "Dawnguard.esm", Index: 2}

	tests := []struct {
		name  string
		forms Forms
		want  Result
	}{
		{name: "all held", forms: Forms{All: []Member{FormMember(keyword), FormMember(nord)}}, want: Pass},
		{name: "all not held", forms: Forms{All: []Member{FormMember(keyword), FormMember(other)}}, want: Fail},
		{name: "not held", forms: Forms{Not: []Member{FormMember(other)}}, want: Pass},
		{name: "not plugin", forms: Forms{Not: []Member{FileMember(skyrim)}}, want: Fail},
		{name: "match plugin", forms: Forms{Match: []Member{FileMember(dawnguard), FileMember(skyrim)}}, want: Pass},
		{name: "match none", forms: Forms{Match: []Member{FileMember(dawnguard), FormMember(other)}}, want: Fail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Data{Forms: tt.forms}
			result, _ := d.Evaluate(guard(10), Fixed(0))
			assert.Equal(t, tt.want, result)
		})
	}
}

func TestLevelRange(t *testing.T) {
	tests := []struct {
		name  string
		level LevelRange
		at    uint16
		want  bool
	}{
		{name: "open", at: 1, want: true},
		{name: "min only below", level: LevelRange{Min: Level(10)}, at: 9, want: false},
		{name: "min only equal", level: LevelRange{Min: Level(10)}, at: 10, want: true},
		{name: "max only above", level: LevelRange{Max: Level(20)}, at: 21, want: false},
		{name: "max only equal", level: LevelRange{Max: Level(20)}, at: 20, want: true},
		{name: "inside", level: LevelRange{Min: Level(10), Max: Level(20)}, at: 15, want: true},
		{name: "outside", level: LevelRange{Min: Level(10), Max: Level(20)}, at: 25, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.Contains(tt.at))
			d := Data{Level: tt.level}
			assert.Equal(t, tt.level.IsSet(), d.HasLevelFilters())
			assert.Equal(t, tt.want, Matches(guard(tt.at), &d, Fixed(0)))
		})
	}
}

func TestTraits(t *testing.T) {
	khajiit := &form.Form{ID: 0x13745, Type: form.TypeRace}
	tests := []struct {
		name   string
		traits Traits
		clause Clause
	}{
		{name: "male", traits: Traits{Sex: npc.SexMale}},
		{name: "female", traits: Traits{Sex: npc.SexFemale}, clause: ClauseSex},
		{name: "not unique", traits: Traits{Unique: Bool(false)}},
		{name: "unique", traits: Traits{Unique: Bool(true)}, clause: ClauseUnique},
		{name: "child", traits: Traits{Child: Bool(true)}, clause: ClauseChild},
		{name: "race", traits: Traits{Race: nord}},
		{name: "other race", traits: Traits{Race: khajiit}, clause: ClauseRace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Data{Traits: tt.traits}
			_, clause := d.Evaluate(guard(10), Fixed(0))
			assert.Equal(t, tt.clause, clause)
		})
	}
}

func TestChance(t *testing.T) {
	snap := guard(10)

	never := Data{Chance: Percent(0)}
	result, clause := never.Evaluate(snap, Fixed(0))
	assert.Equal(t, FailChance, result)
	assert.Equal(t, ClauseChance, clause)

	always := Data{Chance: Percent(100)}
	assert.True(t, Matches(snap, &always, Fixed(99.999)))

	half := Data{Chance: Percent(50)}
	assert.True(t, Matches(snap, &half, Fixed(49.9)))
	assert.False(t, Matches(snap, &half, Fixed(50)))
}

func TestChanceFrequency(t *testing.T) {
	roller := NewSeededRand(7, 11)
	half := Data{Chance: Percent(50)}
	snap := guard(10)

	const draws = 20000
	passed := 0
	for range draws {
		if Matches(snap, &half, roller) {
			passed++
		}
	}
	ratio := float64(passed) / draws
	assert.InDelta(t, 0.5, ratio, 0.03)
}

func TestChanceOnlyAfterDeterministicClauses(t *testing.T) {
	d := Data{Strings: Strings{All: []string{"Bandit"}}, Chance: Percent(0)}
	result, _ := d.Evaluate(guard(10), Fixed(0))
	require.Equal(t, Fail, result, "deterministic failure must win over chance")
}

func TestNewRand(t *testing.T) {
	roller, err := NewRand()
	require.NoError(t, err)
	for range 100 {
		v := roller.Roll()
		require.GreaterOrEqual(t, v, 0.0)
		require.Less(t, v, 100.0)
	}
}
