package services

import (
	"encoding/xml"
	"fmt"
	"log"
	"time"

	"github.com/fortebank/backend/internal/ledger"
	"github.com/google/uuid"
	"github.com/moov-io/iso20022/pkg/common"
	"github.com/moov-io/iso20022/pkg/pacs_v08"
)

// SettlementService converts settled international transfers into ISO 20022
// pacs.008 messages for the clearing network. The worker drains the
// settlement queue through it.
type SettlementService struct {
	bankBIC string
}

func NewSettlementService(bankBIC string) *SettlementService {
	return &SettlementService{bankBIC: bankBIC}
}

// CreatePacs008 builds a pacs.008 FIToFICustomerCreditTransfer for one
// settled transfer. Amounts move from minor units to major units on the
// wire.
func (s *SettlementService) CreatePacs008(job *ledger.SettlementJob) (*pacs_v08.FIToFICustomerCreditTransferV08, error) {
	msgId := uuid.New().String()
	creDtTm := time.Now()
	settlementDate := job.SettledAt

	amount := float64(job.Amount) / 100

	doc := &pacs_v08.FIToFICustomerCreditTransferV08{
		GrpHdr: pacs_v08.GroupHeader93{
			MsgId:   common.Max35Text(msgId),
			CreDtTm: common.ISODateTime(creDtTm),
			NbOfTxs: "1",
			TtlIntrBkSttlmAmt: &pacs_v08.ActiveCurrencyAndAmount{
				Ccy:   common.ActiveCurrencyCode(job.Currency),
				Value: amount,
			},
			IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
			SttlmInf: pacs_v08.SettlementInstruction7{
				SttlmMtd: "CLRG", // Clearing
			},
		},
		CdtTrfTxInf: []pacs_v08.CreditTransferTransaction39{
			{
				PmtId: pacs_v08.PaymentIdentification7{
					InstrId:    &[]common.Max35Text{common.Max35Text(job.Reference)}[0],
					EndToEndId: common.Max35Text(job.Reference),
					TxId:       &[]common.Max35Text{common.Max35Text(job.Reference)}[0],
				},
				IntrBkSttlmAmt: pacs_v08.ActiveCurrencyAndAmount{
					Ccy:   common.ActiveCurrencyCode(job.Currency),
					Value: amount,
				},
				IntrBkSttlmDt: (*common.ISODate)(&settlementDate),
				ChrgBr:        "SLEV",
				DbtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						BICFI: &[]common.BICFIDec2014Identifier{common.BICFIDec2014Identifier(s.bankBIC)}[0],
					},
				},
				Dbtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(job.FromAccountNumber)}[0],
				},
				CdtrAgt: pacs_v08.BranchAndFinancialInstitutionIdentification6{
					FinInstnId: pacs_v08.FinancialInstitutionIdentification18{
						ClrSysMmbId: &pacs_v08.ClearingSystemMemberIdentification2{
							MmbId: common.Max35Text(job.ToRoutingNumber),
						},
					},
				},
				Cdtr: pacs_v08.PartyIdentification135{
					Nm: &[]common.Max140Text{common.Max140Text(job.ToAccountNumber)}[0],
				},
			},
		},
	}

	return doc, nil
}

// Settle converts one job and hands it to the settlement network.
func (s *SettlementService) Settle(job *ledger.SettlementJob) error {
	doc, err := s.CreatePacs008(job)
	if err != nil {
		return fmt.Errorf("failed to build pacs.008 for %s: %w", job.Reference, err)
	}
	return s.send(doc)
}

// ConvertToXML renders an ISO 20022 document as an XML string.
func (s *SettlementService) ConvertToXML(doc any) (string, error) {
	xmlData, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal XML: %w", err)
	}
	return xml.Header + string(xmlData), nil
}

func (s *SettlementService) send(doc any) error {
	xmlData, err := s.ConvertToXML(doc)
	if err != nil {
		return err
	}

	// TODO: wire the clearing-network transport once credentials exist
	log.Printf("[SETTLEMENT] sending to clearing network: %s", xmlData)
	return nil
}
