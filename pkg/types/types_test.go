// pkg/types/types_test.go
// TEST TYPE: Unit Tests
// DEPENDENCIES: None
// PURPOSE: Setting and class parsing, algorithm folding and grouping

package types_test

import (
	"testing"

	"github.com/arthur-debert/declarix/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSetting(t *testing.T) {
	tests := []struct {
		input   string
		want    types.Setting
		wantErr bool
	}{
		{"link", types.SettingLink, false},
		{" Recursive ", types.SettingRecursive, false},
		{"COPY", types.SettingCopy, false},
		{"secure_link", types.SettingSecureLink, false},
		{"secure_recursive", types.SettingSecureRecursive, false},
		{"secure_copy", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := types.ParseSetting(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingTraits(t *testing.T) {
	tests := []struct {
		setting types.Setting
		base    types.Setting
		secure  bool
		tree    bool
		label   string
	}{
		{types.SettingLink, types.SettingLink, false, false, "link"},
		{types.SettingRecursive, types.SettingRecursive, false, true, "recursive"},
		{types.SettingCopy, types.SettingCopy, false, true, "copy"},
		{types.SettingSecureLink, types.SettingLink, true, false, "secure link"},
		{types.SettingSecureRecursive, types.SettingRecursive, true, true, "secure recursive"},
	}

	for _, tt := range tests {
		t.Run(string(tt.setting), func(t *testing.T) {
			assert.Equal(t, tt.base, tt.setting.Base())
			assert.Equal(t, tt.secure, tt.setting.IsSecure())
			assert.Equal(t, tt.tree, tt.setting.IsTree())
			assert.Equal(t, tt.label, tt.setting.Label())
		})
	}
}

func TestParseClass(t *testing.T) {
	for _, class := range types.AllClasses() {
		got, err := types.ParseClass(string(class))
		require.NoError(t, err)
		assert.Equal(t, class, got)
	}

	_, err := types.ParseClass("system")
	assert.Error(t, err)

	assert.True(t, types.ClassDefault.IsDefault())
	assert.True(t, types.Class("").IsDefault())
	assert.False(t, types.ClassHome.IsDefault())
}

func TestEntityGroup(t *testing.T) {
	e := types.Entity{Category: "config", Setting: types.SettingSecureLink, Title: "ssh"}
	g := e.Group()
	assert.Equal(t, types.Group{Category: "config", Setting: types.SettingSecureLink}, g)
	assert.Equal(t, "config/secure_link", g.String())
}
