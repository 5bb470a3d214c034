package distribute_test

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formdist/internal/distribute"
	"formdist/internal/filter"
	"formdist/internal/form"
	"formdist/internal/lookup"
	"formdist/internal/npc"
	"formdist/internal/parser"
	"formdist/internal/world"
)

const worldYAML = `plugin: Skyrim.esm
forms:
  - {id: 0x13746, editor_id: NordRace, type: race}
  - {id: 0x13745, editor_id: KhajiitRace, type: race}
  - {id: 0x13794, editor_id: ActorTypeNPC, type: keyword}
  - {id: 0x13795, editor_id: Guard, type: keyword}
  - {id: 0x28713, editor_id: GuardFaction, type: faction}
  - {id: 0x28714, editor_id: EliteFaction, type: faction}
  - {id: 0x2C000, editor_id: FireballSpell, type: spell}
  - {id: 0x12EB7, editor_id: IronSword, type: weapon}
  - {id: 0x12EB8, editor_id: LItemBanditWeapon, type: leveled_item}
  - {id: 0x1C000, editor_id: GoldCoin, type: misc}
  - {id: 0x1A000, editor_id: NordCuirassAA, type: armor_addon, races: [NordRace]}
  - {id: 0x1A001, editor_id: NordCuirass, type: armor, addons: [0x1A000]}
  - {id: 0x1A002, editor_id: GuardOutfit, type: outfit}
  - {id: 0x1A003, editor_id: NordOutfit, type: outfit, members: [NordCuirass]}
  - {id: 0x1A005, editor_id: FineOutfit, type: outfit}
  - {id: 0x1A006, editor_id: RaggedOutfit, type: outfit}
  - {id: 0x1B000, editor_id: SkinA, type: armor}
  - {id: 0x1B001, editor_id: SkinB, type: armor}
  - {id: 0x2A000, editor_id: PackageA, type: package}
  - {id: 0x2A001, editor_id: PackageB, type: package}
  - {id: 0x2A002, editor_id: PackageC, type: package}
  - {id: 0x2A00F, editor_id: PackageV, type: package}
  - {id: 0x2B000, editor_id: CombatList, type: form_list}
actors:
  - {id: 0x1A66B, editor_id: WhiterunGuard, name: Whiterun Guard, race: NordRace, level: 15, keywords: [ActorTypeNPC, Guard], outfit: GuardOutfit, packages: [PackageA, PackageB, PackageC]}
  - {id: 0x1A66C, editor_id: VeteranGuard, name: Veteran Guard, race: NordRace, level: 25, keywords: [ActorTypeNPC, Guard]}
  - {id: 0x1A66D, editor_id: Bandit, name: Bandit, race: NordRace, level: 15, keywords: [ActorTypeNPC]}
  - {id: 0x1A66E, editor_id: KhajiitGuard, name: Khajiit Guard, race: KhajiitRace, level: 15, keywords: [Guard]}
  - {id: 0x1A66F, editor_id: LeveledBandit, name: Bandit Marauder, race: NordRace, level_mult: {mult: 1.0, min: 1, max: 10}, keywords: [ActorTypeNPC]}
`

type fixture struct {
	world  *world.World
	tables *lookup.Tables
	engine *distribute.Engine
}

func setup(t *testing.T, records map[lookup.Category][]lookup.RawRecord) *fixture {
	t.Helper()
	doc, err := parser.Parse([]byte(worldYAML))
	require.NoError(t, err)
	w, err := world.Load([]string{"Skyrim.esm"}, []*parser.Document{doc})
	require.NoError(t, err)

	tables, diags := lookup.Run(w, nil, records, nil, nil)
	require.Empty(t, diags)
	engine, err := distribute.New(tables, distribute.Config{Roller: filter.Fixed(0)})
	require.NoError(t, err)
	return &fixture{world: w, tables: tables, engine: engine}
}

func (f *fixture) actor(t *testing.T, editorID string) *world.Actor {
	t.Helper()
	a, ok := f.world.FindActor(form.EditorKey(editorID))
	require.True(t, ok, "missing actor %s", editorID)
	return a
}

func (f *fixture) form(t *testing.T, editorID string) *form.Form {
	t.Helper()
	found, ok := f.world.LookupByEditorID(editorID)
	require.True(t, ok, "missing form %s", editorID)
	return found
}

func (f *fixture) run(a distribute.Target, character npc.Character, opts distribute.Options) *distribute.Result {
	return f.engine.Distribute(npc.New(character), a, opts)
}

func rule(target string, path string) lookup.RawRecord {
	id, err := form.ParseIdentifier(target)
	if err != nil {
		panic(err)
	}
	return lookup.RawRecord{Target: id, IdxOrCount: 1, Path: path}
}

func TestGuardKeywordScenario(t *testing.T) {
	elite := rule("EliteGuard", "Guards_DISTR.yaml")
	elite.Forms = lookup.RawFormFilters{All: []form.Identifier{form.EditorKey("Guard")}}
	elite.Level = filter.LevelRange{Min: filter.Level(10), Max: filter.Level(20)}

	f := setup(t, map[lookup.Category][]lookup.RawRecord{lookup.Keyword: {elite}})
	kw := f.form(t, "EliteGuard")
	require.Equal(t, uint8(0xFF), kw.ID.FileIndex(), "keyword is created on lookup")

	guard := f.actor(t, "WhiterunGuard")
	result := f.run(guard, guard, distribute.Options{PlayerLevel: 1})
	assert.Equal(t, 1, result.Applied())
	assert.True(t, guard.HasForm(kw))

	veteran := f.actor(t, "VeteranGuard")
	f.run(veteran, veteran, distribute.Options{PlayerLevel: 1})
	assert.False(t, veteran.HasForm(kw), "level 25 is outside [10,20]")

	bandit := f.actor(t, "Bandit")
	f.run(bandit, bandit, distribute.Options{PlayerLevel: 1})
	assert.False(t, bandit.HasForm(kw), "bandit has no Guard keyword")

	khajiit := f.actor(t, "KhajiitGuard")
	f.run(khajiit, khajiit, distribute.Options{PlayerLevel: 1})
	assert.True(t, khajiit.HasForm(kw), "any race carrying the keyword qualifies")
}

func TestGuardNameScenario(t *testing.T) {
	elite := rule("EliteGuard", "Guards_DISTR.yaml")
	elite.Strings = filter.Strings{Match: []string{"Guard"}}

	f := setup(t, map[lookup.Category][]lookup.RawRecord{lookup.Keyword: {elite}})
	kw := f.form(t, "EliteGuard")

	guard := f.actor(t, "VeteranGuard")
	f.run(guard, guard, distribute.Options{})
	assert.True(t, guard.HasForm(kw))

	bandit := f.actor(t, "Bandit")
	f.run(bandit, bandit, distribute.Options{})
	assert.False(t, bandit.HasForm(kw))
}

func TestKeywordsVisibleToLaterCategories(t *testing.T) {
	elite := rule("EliteMarker", "A_DISTR.yaml")
	elite.Strings = filter.Strings{All: []string{"Guard"}}
	faction := rule("EliteFaction", "A_DISTR.yaml")
	faction.Strings = filter.Strings{All: []string{"EliteMarker"}}

	f := setup(t, map[lookup.Category][]lookup.RawRecord{
		lookup.Keyword: {elite},
		lookup.Faction: {faction},
	})
	guard := f.actor(t, "WhiterunGuard")
	result := f.run(guard, guard, distribute.Options{})

	require.Len(t, result.Granted(lookup.Faction), 1)
	assert.True(t, guard.HasForm(f.form(t, "EliteFaction")))
}

func TestSetLikeSkipsPossessed(t *testing.T) {
	f := setup(t, map[lookup.Category][]lookup.RawRecord{
		lookup.Keyword: {rule("Guard", "A_DISTR.yaml"), rule("Guard", "B_DISTR.yaml")},
		lookup.Faction: {rule("GuardFaction", "A_DISTR.yaml"), rule("GuardFaction", "B_DISTR.yaml")},
	})
	guard := f.actor(t, "WhiterunGuard")
	result := f.run(guard, guard, distribute.Options{})

	assert.Empty(t, result.Granted(lookup.Keyword), "guard already carries the keyword")
	assert.Len(t, result.Granted(lookup.Faction), 1, "duplicate faction entries grant once")
	assert.Len(t, guard.Factions(), 1)
}

type countingTarget struct {
	*world.Actor
	addItemsCalls int
	lastBatch     []distribute.ItemCount
}

func (c *countingTarget) AddItems(items []distribute.ItemCount) bool {
	c.addItemsCalls++
	c.lastBatch = items
	return c.Actor.AddItems(items)
}

func TestItemCountsAreSummed(t *testing.T) {
	two := rule("IronSword", "A_DISTR.yaml")
	two.IdxOrCount = 2
	three := rule("IronSword", "B_DISTR.yaml")
	three.IdxOrCount = 3
	gold := rule("GoldCoin", "B_DISTR.yaml")
	gold.IdxOrCount = 50

	f := setup(t, map[lookup.Category][]lookup.RawRecord{lookup.Item: {two, three, gold}})
	bandit := f.actor(t, "Bandit")
	target := &countingTarget{Actor: bandit}
	result := f.run(target, bandit, distribute.Options{})

	assert.Equal(t, 1, target.addItemsCalls)
	require.Len(t, target.lastBatch, 2)
	assert.Equal(t, int32(5), target.lastBatch[0].Count)
	assert.Equal(t, int32(5), bandit.ItemCount(f.form(t, "IronSword")))
	assert.Equal(t, int32(50), bandit.ItemCount(f.form(t, "GoldCoin")))
	assert.Len(t, result.Granted(lookup.Item), 3)
	assert.Equal(t, 0, bandit.LeveledItemInits())
}

func TestItemCountSaturates(t *testing.T) {
	big := rule("IronSword", "A_DISTR.yaml")
	big.IdxOrCount = math.MaxInt32 - 1
	more := rule("IronSword", "B_DISTR.yaml")
	more.IdxOrCount = 10

	f := setup(t, map[lookup.Category][]lookup.RawRecord{lookup.Item: {big, more}})
	bandit := f.actor(t, "Bandit")
	target := &countingTarget{Actor: bandit}
	f.run(target, bandit, distribute.Options{})

	require.Len(t, target.lastBatch, 1)
	assert.Equal(t, int32(math.MaxInt32), target.lastBatch[0].Count)
	assert.Equal(t, int32(math.MaxInt32), bandit.ItemCount(f.form(t, "IronSword")))

	sword := f.form(t, "IronSword")
	require.True(t, bandit.AddItems([]distribute.ItemCount{{Form: sword, Count: 5}}))
	assert.Equal(t, int32(math.MaxInt32), bandit.ItemCount(sword), "inventory totals saturate too")
}

func TestLeveledItemInitializesOnce(t *testing.T) {
	f := setup(t, map[lookup.Category][]lookup.RawRecord{
		lookup.Item: {rule("LItemBanditWeapon", "A_DISTR.yaml"), rule("IronSword", "A_DISTR.yaml")},
	})
	bandit := f.actor(t, "Bandit")
	f.run(bandit, bandit, distribute.Options{})
	assert.Equal(t, 1, bandit.LeveledItemInits())
}

func TestDistributeTwiceAddsNothing(t *testing.T) {
	sword := rule("IronSword", "A_DISTR.yaml")
	sword.IdxOrCount = 2
	f := setup(t, map[lookup.Category][]lookup.RawRecord{
		lookup.Keyword: {rule("EliteMarker", "A_DISTR.yaml")},
		lookup.Spell:   {rule("FireballSpell", "A_DISTR.yaml")},
		lookup.Item:    {sword},
		lookup.Package: {rule("PackageV", "A_DISTR.yaml")},
		lookup.Skin:    {rule("SkinA", "A_DISTR.yaml")},
	})
	bandit := f.actor(t, "Bandit")

	first := f.run(bandit, bandit, distribute.Options{})
	assert.Equal(t, 5, first.Applied())

	second := f.run(bandit, bandit, distribute.Options{})
	assert.Equal(t, 0, second.Applied())
	assert.Equal(t, int32(2), bandit.ItemCount(f.form(t, "IronSword")))
	assert.Len(t, bandit.Packages(), 1)
	assert.Len(t, bandit.Spells(), 1)

	f.engine.Forget(bandit.ID())
	third := f.run(bandit, bandit, distribute.Options{})
	assert.Len(t, third.Granted(lookup.Item), 1, "forgotten characters are treated as new")
	assert.Equal(t, int32(4), bandit.ItemCount(f.form(t, "IronSword")))
}

func TestPackageInsertPosition(t *testing.T) {
	tests := []struct {
		name string
		pos  int32
		want []string
	}{
		{name: "front", pos: 0, want: []string{"PackageV", "PackageA", "PackageB", "PackageC"}},
		{name: "index two", pos: 2, want: []string{"PackageA", "PackageB", "PackageV", "PackageC"}},
		{name: "past end", pos: 99, want: []string{"PackageA", "PackageB", "PackageC", "PackageV"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rule("PackageV", "A_DISTR.yaml")
			r.IdxOrCount = tt.pos
			f := setup(t, map[lookup.Category][]lookup.RawRecord{lookup.Package: {r}})
			guard := f.actor(t, "WhiterunGuard")
			f.run(guard, guard, distribute.Options{})

			var got []string
			for _, pkg := range guard.Packages() {
				got = append(got, pkg.EditorID)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("packages mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPackageListSlot(t *testing.T) {
	combat := rule("CombatList", "A_DISTR.yaml")
	combat.IdxOrCount = int32(distribute.PackEnterCombat)
	invalid := rule("CombatList", "B_DISTR.yaml")
	invalid.IdxOrCount = 7

	f := setup(t, map[lookup.Category][]lookup.RawRecord{lookup.Package: {combat, invalid}})
	guard := f.actor(t, "WhiterunGuard")
	result := f.run(guard, guard, distribute.Options{})

	assert.Same(t, f.form(t, "CombatList"), guard.PackList(distribute.PackEnterCombat))
	assert.Nil(t, guard.PackList(distribute.PackDefault))
	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, distribute.Declined, result.Outcomes[1].Status)
	assert.Equal(t, distribute.ReasonInvalidSlot, result.Outcomes[1].Reason)
}

func TestOutfitOverrideOrder(t *testing.T) {
	f := setup(t, map[lookup.Category][]lookup.RawRecord{
		lookup.Outfit: {
			rule("RaggedOutfit", "Aaa_DISTR.yaml"),
			rule("FineOutfit", "Zzz_DISTR.yaml"),
			rule("NordOutfit", "Mmm_DISTR.yaml"),
		},
	})

	var order []string
	for _, entry := range f.tables.Get(lookup.Outfit).Entries(false) {
		order = append(order, entry.Path)
	}
	assert.Equal(t, []string{"Zzz_DISTR.yaml", "Mmm_DISTR.yaml", "Aaa_DISTR.yaml"}, order)

	guard := f.actor(t, "WhiterunGuard")
	result := f.run(guard, guard, distribute.Options{})
	assert.Same(t, f.form(t, "FineOutfit"), guard.DefaultOutfit())
	assert.Same(t, f.form(t, "FineOutfit"), guard.WornOutfit(), "worn default outfit is re-equipped")
	assert.True(t, guard.IsProcessed())
	require.Len(t, result.Granted(lookup.Outfit), 1)

	again := f.run(guard, guard, distribute.Options{})
	assert.Empty(t, again.Granted(lookup.Outfit))
	assert.Same(t, f.form(t, "FineOutfit"), guard.DefaultOutfit())
}

func TestOutfitRaceCompatibility(t *testing.T) {
	f := setup(t, map[lookup.Category][]lookup.RawRecord{
		lookup.Outfit: {rule("NordOutfit", "Zzz_DISTR.yaml"), rule("FineOutfit", "Aaa_DISTR.yaml")},
	})
	khajiit := f.actor(t, "KhajiitGuard")
	result := f.run(khajiit, khajiit, distribute.Options{})

	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, distribute.ReasonIncompatibleRace, result.Outcomes[0].Reason)
	assert.Same(t, f.form(t, "FineOutfit"), khajiit.DefaultOutfit())
	assert.Nil(t, khajiit.WornOutfit(), "nothing was worn before")
}

func TestSkinSlot(t *testing.T) {
	f := setup(t, map[lookup.Category][]lookup.RawRecord{
		lookup.Skin: {rule("SkinA", "Aaa_DISTR.yaml"), rule("SkinB", "Bbb_DISTR.yaml")},
	})
	bandit := f.actor(t, "Bandit")
	result := f.run(bandit, bandit, distribute.Options{})

	assert.Same(t, f.form(t, "SkinB"), bandit.Skin())
	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, distribute.ReasonOverridden, result.Outcomes[1].Reason)
}

func TestRejectedRollIsRemembered(t *testing.T) {
	spell := rule("FireballSpell", "A_DISTR.yaml")
	spell.Level = filter.LevelRange{Min: filter.Level(1)}
	spell.Chance = filter.Percent(0)

	f := setup(t, map[lookup.Category][]lookup.RawRecord{lookup.Spell: {spell}})
	bandit := f.actor(t, "LeveledBandit")

	first := f.run(bandit, bandit, distribute.Options{PlayerLevel: 5})
	assert.Equal(t, 1, first.Evaluated)
	assert.Equal(t, 1, first.FailedRoll)

	second := f.run(bandit, bandit, distribute.Options{PlayerLevel: 5, OnlyLeveled: true})
	assert.Equal(t, 0, second.Evaluated, "same player level must not roll again")
	assert.Equal(t, 1, second.FailedRoll)

	third := f.run(bandit, bandit, distribute.Options{PlayerLevel: 6, OnlyLeveled: true})
	assert.Equal(t, 1, third.Evaluated)
}

func TestLevelCapSkipsLeveledPasses(t *testing.T) {
	spell := rule("FireballSpell", "A_DISTR.yaml")
	spell.Level = filter.LevelRange{Min: filter.Level(50)}

	f := setup(t, map[lookup.Category][]lookup.RawRecord{lookup.Spell: {spell}})
	bandit := f.actor(t, "LeveledBandit")

	f.world.SetPlayerLevel(12)
	first := f.run(bandit, bandit, distribute.Options{PlayerLevel: 12})
	assert.False(t, first.LevelCapped)
	assert.Equal(t, 1, first.Failed)

	capped := f.run(bandit, bandit, distribute.Options{PlayerLevel: 13, OnlyLeveled: true})
	assert.True(t, capped.LevelCapped)
	assert.Equal(t, 0, capped.Evaluated)

	lower := f.run(bandit, bandit, distribute.Options{PlayerLevel: 11, OnlyLeveled: true})
	assert.False(t, lower.LevelCapped)
}

func TestDeathItems(t *testing.T) {
	gold := rule("GoldCoin", "A_DISTR.yaml")
	gold.IdxOrCount = 25
	f := setup(t, map[lookup.Category][]lookup.RawRecord{lookup.DeathItem: {gold}})
	bandit := f.actor(t, "Bandit")

	regular := f.run(bandit, bandit, distribute.Options{})
	assert.Equal(t, 0, regular.Applied(), "death items are not part of a regular pass")

	death := f.engine.DistributeDeath(npc.New(bandit), bandit)
	assert.Len(t, death.Granted(lookup.DeathItem), 1)
	assert.Equal(t, int32(25), bandit.ItemCount(f.form(t, "GoldCoin")))
}
