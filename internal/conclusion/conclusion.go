// Package conclusion synthesizes the closing clause of an NFA.
package conclusion

import (
	"math/rand/v2"

	"github.com/jonathan/nfa-builder/internal/types"
)

// Generic is returned for document types without a pool of their own.
const Generic = "The above proposal is submitted for approval."

// Source picks an index in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

var reimbursementPool = []string{
	"The above proposal is submitted for approval, and the expenses incurred may be reimbursed to the organizing committee after the event upon submission of the online report, receipts and GST bills.",
	"The proposal is placed for kind approval; the expenditure may be reimbursed upon completion of the event against proper documentation, financial verification and original receipts.",
	"Approval is requested for the above, and the amount spent may be reimbursed after the event once the report, attendance records and GST compliant invoices are submitted.",
	"The above is submitted for consideration, and the committee may be reimbursed for the approved expenses after the event on submission of the activity report and supporting bills.",
	"The proposal is forwarded for approval; the organizers may be reimbursed upon successful conduct of the event on submission of the event report, receipts and GST bills.",
}

var advancePool = []string{
	"The above proposal is submitted for approval, and an advance of the estimated amount may kindly be released to the organizing committee, to be settled after the event with receipts and GST bills.",
	"The proposal is placed for kind approval; the advance may be released to the coordinators and settled upon completion of the event against the report and original receipts.",
	"Approval is requested for the above, and the requested advance may be sanctioned to the organizing committee, with settlement due after the event on submission of supporting documents.",
	"The above is submitted for consideration, and the advance amount may be released before the event, to be accounted for with bills and the activity report afterwards.",
	"The proposal is forwarded for approval; the advance may kindly be disbursed to the organizers and adjusted after the event upon submission of the online report, receipts and GST bills.",
}

// Pool returns a copy of the clause pool for docType, or nil when the type has
// no pool.
func Pool(docType types.DocumentType) []string {
	var pool []string
	switch docType {
	case types.DocumentReimbursement:
		pool = reimbursementPool
	case types.DocumentAdvance:
		pool = advancePool
	default:
		return nil
	}
	return append([]string(nil), pool...)
}

// Synthesize selects one closing clause for docType uniformly at random. A nil
// src uses the process-wide generator. Unknown types get the Generic clause.
func Synthesize(docType types.DocumentType, src Source) string {
	var pool []string
	switch docType {
	case types.DocumentReimbursement:
		pool = reimbursementPool
	case types.DocumentAdvance:
		pool = advancePool
	default:
		return Generic
	}

	var idx int
	if src == nil {
		idx = rand.IntN(len(pool))
	} else {
		idx = src.IntN(len(pool))
	}
	if idx < 0 || idx >= len(pool) {
		return Generic
	}
	return pool[idx]
}
