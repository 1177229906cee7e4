package acmi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropertyList(t *testing.T) {
	var l PropertyList
	l = l.Set(PropName, "Viper")
	l = l.Set(PropCoalition, "Allies")
	l = l.Set(PropName, "Cobra")

	assert.Equal(t, PropertyList{{PropName, "Cobra"}, {PropCoalition, "Allies"}}, l)

	v, ok := l.Get(PropCoalition)
	assert.True(t, ok)
	assert.Equal(t, "Allies", v)

	_, ok = l.Get(PropHealth)
	assert.False(t, ok)

	c := l.Clone()
	c[0].Value = "changed"
	assert.Equal(t, "Cobra", l[0].Value)

	l = l.Delete(PropName)
	assert.Equal(t, PropertyList{{PropCoalition, "Allies"}}, l)
	assert.Equal(t, PropertyList{{PropCoalition, "Allies"}}, l.Delete("missing"))

	assert.Nil(t, PropertyList(nil).Clone())
}
