package workbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/xuri/excelize/v2"
)

func TestProtectionDefinitionDistinguishesPasswordPresence(t *testing.T) {
	withPassword := protectionDefinition(&excelize.SheetProtectionOptions{Password: "deadbeef"})
	withoutPassword := protectionDefinition(&excelize.SheetProtectionOptions{})
	assert.NotEqual(t, withPassword, withoutPassword)
	assert.Contains(t, withPassword, "password_set=true")
	assert.Contains(t, withoutPassword, "password_set=false")
}

func TestProtectionDefinitionIsStableForIdenticalOptions(t *testing.T) {
	a := &excelize.SheetProtectionOptions{FormatCells: true, Sort: false, AutoFilter: true}
	b := &excelize.SheetProtectionOptions{FormatCells: true, Sort: false, AutoFilter: true}
	assert.Equal(t, protectionDefinition(a), protectionDefinition(b))
}

func TestProtectionDefinitionChangesWithFlags(t *testing.T) {
	a := &excelize.SheetProtectionOptions{Sort: false}
	b := &excelize.SheetProtectionOptions{Sort: true}
	assert.NotEqual(t, protectionDefinition(a), protectionDefinition(b))
}
