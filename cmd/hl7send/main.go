// Command hl7send builds an MDM^T02 message from a transcript file and
// ships it to an MLLP endpoint. Intended for interface testing against an
// HL7 integration engine.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"clinical-ehr-bridge/internal/ehr/mllp"
	"clinical-ehr-bridge/internal/hl7"
)

func main() {
	var (
		file    = flag.String("file", "", "path to the plain-text transcript")
		addr    = flag.String("addr", "localhost:2575", "MLLP host:port")
		patient = flag.String("patient", "MRN-TEST-1", "patient identifier")
		visit   = flag.String("visit", "VISIT-TEST-1", "visit/encounter number")
		npi     = flag.String("npi", "1234567890", "provider NPI")
		timeout = flag.Duration("timeout", 15*time.Second, "send timeout")
	)
	flag.Parse()

	if *file == "" {
		log.Fatal("usage: hl7send -file transcript.txt [-addr host:port]")
	}

	transcript, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read transcript: %v", err)
	}

	msg, err := hl7.NewBuilder().BuildT02(hl7.T02Request{
		Transcript:  string(transcript),
		PatientID:   *patient,
		VisitID:     *visit,
		ProviderNPI: *npi,
	})
	if err != nil {
		log.Fatalf("build MDM^T02: %v", err)
	}

	ack, err := mllp.NewSender(*addr, *timeout).Send(context.Background(), "MDM^T02", msg)
	if err != nil {
		log.Fatalf("send: %v", err)
	}

	fmt.Println(ack)
}
