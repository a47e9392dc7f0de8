// Copyright (c) 2018-2020, AT&T Intellectual Property. All rights reserved.
//
// SPDX-License-Identifier: LGPL-2.1-only

package txn

import (
	"time"

	"github.com/danos/ncxd/callback"
	"github.com/danos/ncxd/mgmterror"
	"github.com/danos/ncxd/schema"
	"github.com/danos/ncxd/valtree"
)

// Transaction drives one <edit-config> through validate, apply and
// commit-or-rollback (spec.md §4.2). A Transaction is single-use.
type Transaction struct {
	Datastore *valtree.Datastore
	ModelSet  *schema.ModelSet
	Delta     *valtree.Node // delta tree root, same schema root as the target

	DefaultOp DefaultOperation
	TestOpt   TestOption
	ErrOpt    ErrorOption

	// Ctx and Hdr are passed through to every callback invocation
	// untouched; the txn package does not interpret them (spec.md §4.2).
	Ctx callback.Context
	Hdr callback.Header

	State  State
	Errors mgmterror.List

	scratch []*touched // from the real apply pass, for rollback and commit callbacks
}

func New(ds *valtree.Datastore, ms *schema.ModelSet, delta *valtree.Node) *Transaction {
	return &Transaction{Datastore: ds, ModelSet: ms, Delta: delta, State: Init}
}

func (tx *Transaction) rootOp() valtree.EditOp {
	switch tx.DefaultOp {
	case DefaultOperationReplace:
		return valtree.OpReplace
	case DefaultOperationNone:
		return valtree.OpNotSet
	}
	return valtree.OpMerge
}

// Run executes validate, and then — unless TestOpt is TestOnly — apply and
// commit or rollback, per the state machine of spec.md §4.2. It returns nil
// when the datastore was committed, or, with TestOnly, when validation
// found no error (nothing is committed then).
//
// Existence/type/structural errors are detected entirely within the
// validate pass, before any callback runs: for stop-on-error and
// rollback-on-error this rejects the whole edit-config with no callback
// invoked at all, since nothing has been applied yet to roll back.
// continue-on-error instead proceeds into apply with whichever subtrees
// merged cleanly (planMerge already drops the erroring ones). Rollback
// callbacks only come into play when an APPLY-phase callback itself
// returns an error after other nodes already applied successfully.
func (tx *Transaction) Run(now time.Time) error {
	base := tx.Datastore.Root()

	tx.State = Validating
	preview, validTouched := planMerge(base, tx.Delta, tx.rootOp(), tx.ModelSet, &tx.Errors)
	checkStructuralConstraints(preview, &tx.Errors)

	if tx.Errors.HasErrors() && tx.ErrOpt != ContinueOnError {
		tx.State = ValidateFailed
		return &tx.Errors
	}

	if _, err := tx.invokePhase(callback.PhaseValidate, validTouched); err != nil {
		tx.State = ValidateFailed
		return err
	}

	if tx.Errors.HasErrors() {
		tx.State = ValidateFailed
		if tx.TestOpt != TestOnly {
			return &tx.Errors
		}
	}
	if tx.TestOpt == TestOnly {
		if tx.Errors.HasErrors() {
			return &tx.Errors
		}
		return nil
	}

	tx.State = Applying
	var applyErrs mgmterror.List
	newRoot, applied := planMerge(base, tx.Delta, tx.rootOp(), tx.ModelSet, &applyErrs)
	checkStructuralConstraints(newRoot, &applyErrs)
	tx.scratch = applied

	succeeded, err := tx.invokePhase(callback.PhaseApply, applied)
	if err != nil {
		tx.State = ApplyFailed
		return tx.fail(succeeded)
	}

	tx.Datastore.Commit(newRoot, now)
	tx.State = Committed
	tx.invokePhase(callback.PhaseCommit, applied)
	return nil
}

// fail ends the transaction per error-option: rollback-on-error invokes
// rollback callbacks over the nodes that did successfully apply, in
// reverse document order (spec.md §4.2, §8 invariant 3); stop-on-error
// leaves the scratch tree discarded without a rollback callback pass.
func (tx *Transaction) fail(applied []*touched) error {
	if tx.ErrOpt == RollbackOnError {
		reverse := make([]*touched, len(applied))
		for i, t := range applied {
			reverse[len(applied)-1-i] = t
		}
		if _, err := tx.invokePhase(callback.PhaseRollback, reverse); err != nil {
			tx.Errors.Add(mgmterror.New(mgmterror.TagRollbackFailed, err.Error()))
		}
		tx.State = RolledBack
	} else {
		tx.State = Aborted
	}
	if tx.Errors.HasErrors() {
		return &tx.Errors
	}
	return mgmterror.New(mgmterror.TagOperationFailed, "edit-config failed")
}

// invokePhase calls each touched node's registered handler for phase, in
// the order given. It returns the nodes whose handler ran without error;
// continue-on-error keeps going past a failing node (recording its error),
// any other error-option stops at the first failure.
func (tx *Transaction) invokePhase(phase callback.Phase, nodes []*touched) ([]*touched, error) {
	var ok []*touched
	for _, t := range nodes {
		if t.delta.Schema == nil {
			ok = append(ok, t)
			continue
		}
		set := t.delta.Schema.GetCallbacks()
		handler := set.Get(phase)
		if handler == nil {
			ok = append(ok, t)
			continue
		}
		var newVal, curVal callback.Value
		if t.live != nil {
			newVal = t.live
		}
		if t.pre != nil {
			curVal = t.pre
		}
		if err := handler(tx.Ctx, tx.Hdr, phase, t.op, newVal, curVal); err != nil {
			if tx.ErrOpt == ContinueOnError {
				tx.Errors.Add(mgmterror.New(mgmterror.TagOperationFailed, err.Error()).
					WithPath(canonicalPath(t.delta)))
				continue
			}
			return ok, err
		}
		ok = append(ok, t)
	}
	return ok, nil
}
