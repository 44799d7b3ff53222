package logger

import (
	"log"
	"os"
)

// ProgressLogger logs the main steps of the layout pass.
var ProgressLogger = log.New(os.Stdout, "typeflow.progress: ", log.LstdFlags)

// WarningLogger emits a warning for each non fatal issue, like clipped
// masthead content or a relayout that did not converge.
var WarningLogger = log.New(os.Stdout, "typeflow.warning: ", log.Lmsgprefix)
