package entity

import (
	"testing"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/gwsim/engine/common"
	"github.com/xiaonanln/gwsim/engine/simerr"
)

func TestParseComponentKind(t *testing.T) {
	for _, kind := range AllComponentKinds() {
		k, ok := ParseComponentKind(kind.String())
		assert.T(t, ok)
		assert.Equal(t, kind, k)
	}
	_, ok := ParseComponentKind("physics")
	assert.T(t, !ok)
	assert.Equal(t, "unknown", ComponentKind(0).String())
}

func TestValidateComponent(t *testing.T) {
	assert.Equal(t, nil, ValidateComponent(KindBounds, Bounds{Max: common.Vector3{X: 1, Y: 1, Z: 1}}))
	assert.T(t, simerr.Is(ValidateComponent(KindBounds, Bounds{Min: common.Vector3{X: 1}}), simerr.ErrInvalidComponent))
	assert.T(t, simerr.Is(ValidateComponent(KindWander, Wander{Speed: -1}), simerr.ErrInvalidComponent))
	assert.T(t, simerr.Is(ValidateComponent(KindTypeTag, "monster"), simerr.ErrInvalidComponent))
	assert.T(t, simerr.Is(ValidateComponent(ComponentKind(100), TypeTag{}), simerr.ErrInvalidComponent))
}

func TestWanderDeterministic(t *testing.T) {
	w1 := Wander{Seed: 42}
	w2 := Wander{Seed: 42}
	for i := 0; i < 100; i++ {
		v := w1.Next()
		assert.Equal(t, v, w2.Next())
		assert.T(t, v >= 0 && v < 1)
	}
}
