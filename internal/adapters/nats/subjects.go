package natsadapter

import (
	"strconv"

	"github.com/gemfoundation/exposure/internal/core/domain"
)

const (
	subjectCalculationProcess = "icebox.calculation.process"
	subjectCalculationStatus  = "icebox.calculation.status"
	subjectExportCompleted    = "exposure.export.completed"
)

// CalculationProcessSubject is where layer-processing requests for a calculation go.
func CalculationProcessSubject(id int64) string {
	return subjectCalculationProcess + "." + strconv.FormatInt(id, 10)
}

// CalculationStatusSubject carries status changes of one calculation.
func CalculationStatusSubject(id int64) string {
	return subjectCalculationStatus + "." + strconv.FormatInt(id, 10)
}

// AllCalculationStatuses matches the status subject of every calculation.
const AllCalculationStatuses = subjectCalculationStatus + ".>"

// ExportCompletedSubject groups finished exports by kind and format.
func ExportCompletedSubject(kind domain.ExportKind, format domain.OutputFormat) string {
	return subjectExportCompleted + "." + string(kind) + "." + string(format)
}
