package capability

import (
	"testing"

	"github.com/solidkey/calibration/diag"
)

func TestDeriveCleanBaseline(t *testing.T) {
	var s diag.Stream
	s.Add(diag.Item{Code: diag.ReadsInvariantCharactersReliably})
	c := Derive(s, Unknown, "Latin", nil, nil)
	if c.CanReadInvariantsReliably != True {
		t.Fatalf("expected CanReadInvariantsReliably=true, got %v", c.CanReadInvariantsReliably)
	}
	if c.KeyboardLayoutsCorrespondForInvariants != True {
		t.Fatalf("expected correspondence true on clean baseline, got %v", c.KeyboardLayoutsCorrespondForInvariants)
	}
}

func TestDeriveCapsLockInvertsConversionFlags(t *testing.T) {
	var s diag.Stream
	s.Add(diag.Item{Code: diag.ScannerMayConvertToUpperCase})
	c := Derive(s, True, "Latin", nil, nil)
	if c.ScannerMayConvertToLowerCase != True {
		t.Fatalf("expected flip under CapsLock, got upper=%v lower=%v", c.ScannerMayConvertToUpperCase, c.ScannerMayConvertToLowerCase)
	}
	if c.ScannerMayConvertToUpperCase != Unknown {
		t.Fatalf("original flag should take the unset lower flag's Unknown after flip, got %v", c.ScannerMayConvertToUpperCase)
	}
}

func TestDeriveCaseConversionNullsCorrespondence(t *testing.T) {
	var s diag.Stream
	s.Add(diag.Item{Code: diag.ScannerMayInvertCase})
	c := Derive(s, Unknown, "Latin", nil, nil)
	if c.KeyboardLayoutsCorrespondForInvariants != Unknown {
		t.Fatalf("expected correspondence unknown under case mangling, got %v", c.KeyboardLayoutsCorrespondForInvariants)
	}
}

func TestDeriveCapsLockOnInvertedCase(t *testing.T) {
	var s diag.Stream
	s.Add(diag.Item{Code: diag.ScannerMayInvertCase})
	c := Derive(s, True, "Latin", nil, nil)
	if c.ScannerMayInvertCase != True {
		t.Fatalf("expected ScannerMayInvertCase=true")
	}
	if c.ScannerMayCompensateForCapsLock != False {
		t.Fatalf("expected ScannerMayCompensateForCapsLock=false, got %v", c.ScannerMayCompensateForCapsLock)
	}
}

func TestDeriveScriptCaseSupport(t *testing.T) {
	c := Derive(diag.Stream{}, Unknown, "Han", nil, nil)
	if c.KeyboardScriptDoesNotSupportCase != True {
		t.Fatalf("expected Han to not support case, got %v", c.KeyboardScriptDoesNotSupportCase)
	}
	c2 := Derive(diag.Stream{}, Unknown, "Greek", nil, nil)
	if c2.KeyboardScriptDoesNotSupportCase != False {
		t.Fatalf("expected Greek to support case, got %v", c2.KeyboardScriptDoesNotSupportCase)
	}
}

func TestDerivePartialResetsToUnknown(t *testing.T) {
	var s diag.Stream
	s.Add(diag.Item{Code: diag.PartialCalibrationDataReported})
	c := Derive(s, Unknown, "", nil, nil)
	if c.KeyboardLayoutsCorrespondForInvariants != Unknown {
		t.Fatalf("expected Unknown (not False) on partial report, got %v", c.KeyboardLayoutsCorrespondForInvariants)
	}
	if c.PartialDataReported != True {
		t.Fatalf("expected PartialDataReported=true")
	}
}
