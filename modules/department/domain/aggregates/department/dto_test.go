package department

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCreateDTO_Validate(t *testing.T) {
	dto := &CreateDTO{Code: "  FIN ", Name: " Finance ", TagIDs: []int64{3, 3, 4}}
	require.NoError(t, dto.Validate())
	require.Equal(t, "FIN", dto.Code)

	d := dto.ToEntity(uuid.New())
	require.Equal(t, []int64{3, 4}, d.TagIDs)
	require.Equal(t, RootPID, d.PID)

	require.Error(t, (&CreateDTO{Code: " ", Name: "x"}).Validate())
	require.Error(t, (&CreateDTO{Code: "x", Name: "x", PID: -1}).Validate())
	require.Error(t, (&CreateDTO{Code: "x", Name: "x", TagIDs: []int64{0}}).Validate())
}

func TestUpdateDTO_ApplyMergesOnlySetFields(t *testing.T) {
	current := &Department{ID: 5, PID: 1, Level: 2, ParentLikeID: "1", Code: "OPS", Name: "Ops", Description: "d", TagIDs: []int64{1}}
	name := "Operations"
	dto := &UpdateDTO{ID: 5, Name: &name}
	require.NoError(t, dto.Validate())

	next := dto.Apply(current)
	require.Equal(t, "Operations", next.Name)
	require.Equal(t, "OPS", next.Code)
	require.Equal(t, int64(1), next.PID)
	require.Equal(t, []int64{1}, next.TagIDs)
	require.Equal(t, "Ops", current.Name)

	empty := ""
	require.Error(t, (&UpdateDTO{ID: 5, Code: &empty}).Validate())
	require.Error(t, (&UpdateDTO{ID: 0}).Validate())
	bad := []int64{-2}
	require.Error(t, (&UpdateDTO{ID: 5, TagIDs: &bad}).Validate())
}

func TestReplaceDTO_ToUpdateOverwritesEverything(t *testing.T) {
	dto := &ReplaceDTO{ID: 9, Code: "HR", Name: "People"}
	require.NoError(t, dto.Validate())

	upd := dto.ToUpdateDTO()
	require.Equal(t, RootPID, *upd.PID)
	require.NotNil(t, upd.TagIDs)
	require.Empty(t, *upd.TagIDs)
	require.Equal(t, "", *upd.Description)

	create := (&ReplaceDTO{Code: "X", Name: "Y"}).ToCreateDTO()
	require.Equal(t, RootPID, create.PID)
}
