package refsample

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/internal/diet"
	apperrors "github.com/Adithya-Monish-Kumar-K/fooddata-vegattributes/pkg/errors"
)

var descriptions = map[int64]string{
	1: "Milk, whole",
	2: "Chicken soup, nfs",
	3: "Kale and quinoa salad",
}

func describe(_ context.Context, id int64) (string, error) {
	if d, ok := descriptions[id]; ok {
		return d, nil
	}
	return "", fmt.Errorf("%w: fdc id %d", apperrors.ErrNotFound, id)
}

func exists(_ context.Context, id int64) (bool, error) {
	_, ok := descriptions[id]
	return ok, nil
}

func TestOpenCreatesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.csv")
	_, err := Open(path, false)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = Open(path, true)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "fdc_id,expected_category,known_failure,description\n", string(data))
}

func TestResetAndAppend(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "refs.csv")
	s, err := Open(path, true)
	require.NoError(t, err)

	require.NoError(t, s.ResetAndPutAll(ctx, []Sample{
		{FdcID: 1, ExpectedCategory: diet.Vegetarian},
		{FdcID: 99, ExpectedCategory: diet.Omni, Description: "kept"},
	}, describe))
	require.NoError(t, s.Append(ctx, Sample{FdcID: 2, ExpectedCategory: diet.Omni, KnownFailure: true}, describe))
	require.ErrorIs(t, s.Append(ctx, Sample{FdcID: 404, ExpectedCategory: diet.Vegan}, describe), apperrors.ErrNotFound)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "fdc_id,expected_category,known_failure,description\n"+
		"1,VEGETARIAN,false,\"Milk, whole\"\n"+
		"99,OMNI,false,kept\n"+
		"2,OMNI,true,\"Chicken soup, nfs\"\n", string(data))

	samples, invalid, err := s.ReadAll()
	require.NoError(t, err)
	require.Empty(t, invalid)
	require.Equal(t, []Sample{
		{FdcID: 1, ExpectedCategory: diet.Vegetarian, Description: "Milk, whole"},
		{FdcID: 99, ExpectedCategory: diet.Omni, Description: "kept"},
		{FdcID: 2, ExpectedCategory: diet.Omni, KnownFailure: true, Description: "Chicken soup, nfs"},
	}, samples)

	require.NoError(t, s.ResetAndPutAll(ctx, samples[:1], describe))
	samples, _, err = s.ReadAll()
	require.NoError(t, err)
	require.Len(t, samples, 1)
}

func TestLoadSkipsInvalidRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.csv")
	content := "description,fdc_id,expected_category,known_failure\n" +
		"Milk,1,VEGETARIAN,False\n" +
		"Soup,2,PESCATARIAN,\n" +
		"Bad,abc,VEGAN,\n" +
		"Again,1,VEGAN,\n" +
		"Ghost,77,VEGAN,\n" +
		"Salad,3,VEGAN,True\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Open(path, false)
	require.NoError(t, err)
	set, invalid, err := s.Load(context.Background(), exists)
	require.NoError(t, err)
	require.Len(t, invalid, 4)
	for _, inv := range invalid {
		require.ErrorIs(t, inv.Err, apperrors.ErrInvalidCategoryOverride)
	}

	var superseded []int
	for _, inv := range invalid {
		if inv.FdcID == 1 {
			superseded = append(superseded, inv.Line)
		}
	}
	require.Equal(t, []int{2}, superseded)

	require.Equal(t, 2, set.Len())
	got, ok := set.Get(1)
	require.True(t, ok)
	require.Equal(t, diet.Vegan, got.ExpectedCategory)
	require.Equal(t, "Again", got.Description)
	got, ok = set.Get(3)
	require.True(t, ok)
	require.True(t, got.KnownFailure)
	_, ok = set.Get(77)
	require.False(t, ok)

	var order []int64
	for sample := range set.All() {
		order = append(order, sample.FdcID)
	}
	require.Equal(t, []int64{1, 3}, order)
}

func TestMissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.csv")
	require.NoError(t, os.WriteFile(path, []byte("fdc_id,expected_category\n1,VEGAN\n"), 0o644))
	s, err := Open(path, false)
	require.NoError(t, err)
	_, _, err = s.ReadAll()
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestNewSetLastSampleWins(t *testing.T) {
	set := NewSet([]Sample{
		{FdcID: 5, ExpectedCategory: diet.Omni},
		{FdcID: 6, ExpectedCategory: diet.Vegan},
		{FdcID: 5, ExpectedCategory: diet.Vegetarian},
	})
	require.Equal(t, 2, set.Len())
	got, _ := set.Get(5)
	require.Equal(t, diet.Vegetarian, got.ExpectedCategory)

	var order []int64
	for sample := range set.All() {
		order = append(order, sample.FdcID)
	}
	require.Equal(t, []int64{5, 6}, order)
}

func TestNilSet(t *testing.T) {
	var s *Set
	_, ok := s.Get(1)
	require.False(t, ok)
	require.Zero(t, s.Len())
}
