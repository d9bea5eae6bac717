// Package schedule compiles the persisted schedule file into the bounded
// in-memory model of package domain.
//
// The payload is a JSON array of medications:
//
//	[
//	  {
//	    "tube": "A",
//	    "type": "Aspirin",
//	    "amount": 30,
//	    "time_to_take": [{"time": "08:00", "dosage": "1 tab"}]
//	  }
//	]
//
// Only the fields shown are read; everything else is skipped. Each element of
// time_to_take becomes one domain.Entry. Entries beyond domain.MaxEntries are
// parsed but dropped, and the grouped table keeps at most
// domain.MaxDosesPerGroup doses per time of day.
package schedule
