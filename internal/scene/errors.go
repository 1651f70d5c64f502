package scene

import (
	"errors"
	"fmt"

	"github.com/l1jgo/scenecore/internal/core/ecs"
)

var (
	ErrUnknownEntity = errors.New("unknown entity")
	ErrCycle         = errors.New("entity would become its own ancestor")
)

// HookError is one failed teardown step.
type HookError struct {
	Entity ecs.EntityID
	Name   string
	Step   string
	Err    error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("teardown %q (%d) %s: %v", e.Name, e.Entity, e.Step, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// Teardown step names used in HookError.Step.
const (
	StepCollider  = "collider"
	StepAudio     = "audio"
	StepOnDestroy = "on_destroy"
	StepScript    = "script"
	StepAnimation = "animation"
	StepRender    = "render"
)
