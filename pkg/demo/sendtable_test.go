package demo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func propNames(props []*SendProp) []string {
	names := make([]string, 0, len(props))
	for _, p := range props {
		names = append(names, p.Name)
	}
	return names
}

func flattenClass(tables []*SendTable, dt string) (*ServerClass, *Stats) {
	var stats Stats
	sc := &ServerClass{Name: "C" + dt, DTName: dt}
	newFlattener(tables, nopLogger(), &stats).flatten(sc)
	return sc, &stats
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name   string
		tables []*SendTable
		dt     string
		want   []string
	}{
		{
			name: "changes often first",
			tables: []*SendTable{{Name: "A", Props: []*SendProp{
				{Name: "p1", Priority: 128},
				{Name: "p2", Priority: 64, Flags: PropChangesOften},
				{Name: "p3", Priority: 128},
			}}},
			dt:   "A",
			want: []string{"p2", "p1", "p3"},
		},
		{
			name: "swap sort is not stable",
			tables: []*SendTable{{Name: "A", Props: []*SendProp{
				{Name: "p1", Priority: 10},
				{Name: "p2", Priority: 64, Flags: PropChangesOften},
				{Name: "p3", Priority: 10},
			}}},
			dt:   "A",
			want: []string{"p1", "p3", "p2"},
		},
		{
			name: "changes often joins tier 64",
			tables: []*SendTable{{Name: "A", Props: []*SendProp{
				{Name: "slow", Priority: 128},
				{Name: "often", Priority: 200, Flags: PropChangesOften},
				{Name: "low", Priority: 1},
			}}},
			dt:   "A",
			want: []string{"low", "often", "slow"},
		},
		{
			name: "excludes",
			tables: []*SendTable{
				{Name: "DT_Base", Props: []*SendProp{
					{Name: "a", Priority: 128},
					{Name: "b", Priority: 128},
				}},
				{Name: "DT_Derived", Props: []*SendProp{
					{Name: "baseclass", Type: PropDataTable, DTName: "DT_Base", Priority: 128},
					{Name: "b", Flags: PropExclude, DTName: "DT_Base", Priority: 128},
					{Name: "c", Priority: 128},
				}},
			},
			dt:   "DT_Derived",
			want: []string{"a", "c"},
		},
		{
			name: "collapsible inlined",
			tables: []*SendTable{
				{Name: "DT_Inner", Props: []*SendProp{
					{Name: "i1", Priority: 128},
					{Name: "i2", Priority: 128},
				}},
				{Name: "DT_Outer", Props: []*SendProp{
					{Name: "x", Priority: 128},
					{Name: "inner", Type: PropDataTable, Flags: PropCollapsible, DTName: "DT_Inner", Priority: 128},
					{Name: "y", Priority: 128},
				}},
			},
			dt:   "DT_Outer",
			want: []string{"x", "i1", "i2", "y"},
		},
		{
			name: "sub table gathered first",
			tables: []*SendTable{
				{Name: "DT_Inner", Props: []*SendProp{
					{Name: "i1", Priority: 128},
					{Name: "i2", Priority: 128},
				}},
				{Name: "DT_Outer", Props: []*SendProp{
					{Name: "x", Priority: 128},
					{Name: "inner", Type: PropDataTable, DTName: "DT_Inner", Priority: 128},
					{Name: "y", Priority: 128},
				}},
			},
			dt:   "DT_Outer",
			want: []string{"i1", "i2", "x", "y"},
		},
		{
			name: "inside array skipped",
			tables: []*SendTable{{Name: "A", Props: []*SendProp{
				{Name: "elem", Flags: PropInsideArray, Priority: 128},
				{Name: "arr", Type: PropArray, NumElements: 4, Priority: 128},
			}}},
			dt:   "A",
			want: []string{"arr"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, _ := flattenClass(tt.tables, tt.dt)
			assert.Equal(t, tt.want, propNames(sc.FlattenedProps))

			// Same input, same order.
			again, _ := flattenClass(tt.tables, tt.dt)
			assert.Equal(t, propNames(sc.FlattenedProps), propNames(again.FlattenedProps))
		})
	}
}

func TestFlatten_UnresolvedTable(t *testing.T) {
	tables := []*SendTable{{Name: "A", Props: []*SendProp{
		{Name: "x", Priority: 128},
		{Name: "missing", Type: PropDataTable, DTName: "DT_Missing", Priority: 128},
		{Name: "y", Priority: 128},
	}}}

	sc, stats := flattenClass(tables, "A")
	assert.Equal(t, []string{"x", "y"}, propNames(sc.FlattenedProps))
	assert.Positive(t, stats.UnresolvedTables.Load())

	sc, stats = flattenClass(tables, "DT_Nope")
	assert.Empty(t, sc.FlattenedProps)
	assert.EqualValues(t, 1, stats.UnresolvedTables.Load())
}

func TestServerClassBits(t *testing.T) {
	for n, want := range map[int]int{0: 0, 1: 1, 2: 2, 3: 2, 4: 3, 255: 8, 256: 9, 284: 9} {
		assert.Equal(t, want, serverClassBits(n), "classes %d", n)
	}
}

func TestReadDataTables(t *testing.T) {
	p := newTestParser(t, Options{})

	require.Len(t, p.SendTables(), len(testSendTables))
	require.Len(t, p.ServerClasses(), len(testServerClasses))
	assert.Equal(t, testClassBits, p.classBits)

	player := p.ServerClasses()[classPlayer]
	assert.Equal(t, "CCSPlayer", player.Name)
	assert.Equal(t, "DT_CSPlayer", player.DTName)
	assert.Equal(t,
		[]string{"m_iHealth", propOrigin, propOriginZ, propPitch, propYaw, propTeam},
		propNames(player.FlattenedProps))

	assert.Equal(t, PropVectorXY, player.FlattenedProps[1].Type)
	assert.True(t, player.FlattenedProps[1].Has(PropNoScale))
}
