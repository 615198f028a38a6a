package workspace

import (
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
)

// Step names a provisioning step.
type Step string

const (
	StepValidate      Step = "validate"
	StepInitHost      Step = "init host repository"
	StepSafeDirectory Step = "safe.directory"
	StepReceivePolicy Step = "receive policy"
	StepBranch        Step = "branch reconcile"
	StepCreateRoot    Step = "create ephemeral root"
	StepClone         Step = "clone"
	StepCopy          Step = "copy"
	StepInitSandbox   Step = "init sandbox repository"
	StepRemote        Step = "remote"
	StepIdentity      Step = "identity copy"
	StepUpstream      Step = "upstream tracking"
	StepSync          Step = "sync back"
)

// fatalSteps abort provisioning. Every other step degrades git sync only.
var fatalSteps = map[Step]bool{
	StepValidate:    true,
	StepInitHost:    true,
	StepCreateRoot:  true,
	StepClone:       true,
	StepCopy:        true,
	StepInitSandbox: true,
}

// Fatal reports whether a failure of s aborts provisioning.
func (s Step) Fatal() bool {
	return fatalSteps[s]
}

// Err classifies err for step s: fatal steps yield a step error (validation
// errors pass through unchanged), the rest a GitSyncWarning.
func (s Step) Err(err error) error {
	if err == nil {
		return nil
	}
	if !s.Fatal() {
		return errors.GitSyncWarning(string(s), err)
	}
	if errors.IsKind(err, errors.KindValidation) {
		return err
	}
	return errors.StepError(string(s), err)
}
