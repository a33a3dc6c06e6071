package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/cautela/internal/model"
	"github.com/erazemk/cautela/internal/notify"
)

const timestampLayout = "02/01/2006 15:04"

func plural(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d itens", n)
}

func identify(p model.Person) string {
	return fmt.Sprintf("%s (BM %s)", p.Display(), p.BM)
}

func writeCheckoutItems(b *strings.Builder, records []model.Movement) {
	for i, m := range records {
		fmt.Fprintf(b, "%d. %s (%s)\n", i+1, m.Material, m.Type)
		fmt.Fprintf(b, "   Origem: %s | Previsão de devolução: %s\n", m.EffectiveOrigin(), m.EstimatedReturn.Format())
		if m.Reason != "" {
			fmt.Fprintf(b, "   Motivo: %s\n", m.Reason)
		}
	}
}

func writeReturnItems(b *strings.Builder, records []model.Movement, withBorrower bool) {
	for i, m := range records {
		fmt.Fprintf(b, "%d. %s (%s)\n", i+1, m.Material, m.Type)
		fmt.Fprintf(b, "   Retirado em: %s | Origem: %s\n", m.CheckedOutAt.Format(timestampLayout), m.EffectiveOrigin())
		if withBorrower {
			fmt.Fprintf(b, "   Responsável: %s\n", identify(m.Borrower()))
		}
	}
}

// checkoutMessages builds the borrower and duty officer notices for one
// checkout batch. All records share borrower, duty officer and timestamp.
func checkoutMessages(records []model.Movement, domain string) []notify.Message {
	first := records[0]
	borrower := first.Borrower()
	officer := first.DutyOfficer()
	at := first.CheckedOutAt.Format(timestampLayout)

	var b strings.Builder
	fmt.Fprintf(&b, "Olá, %s.\n\n", borrower.Display())
	fmt.Fprintf(&b, "Foi registrada em seu nome, em %s, a cautela de %s:\n\n", at, plural(len(records)))
	writeCheckoutItems(&b, records)
	fmt.Fprintf(&b, "\nPlantonista: %s\n", identify(officer))
	b.WriteString("\nDevolva o material até a data prevista. Em caso de divergência, procure a seção de logística.\n")

	msgs := []notify.Message{{
		To:      notify.AddressFor(borrower.BM, domain),
		Subject: "Cautela de material - " + plural(len(records)),
		Body:    b.String(),
	}}

	b.Reset()
	fmt.Fprintf(&b, "Olá, %s.\n\n", officer.Display())
	fmt.Fprintf(&b, "Você registrou, em %s, a cautela de %s para %s:\n\n", at, plural(len(records)), identify(borrower))
	writeCheckoutItems(&b, records)

	return append(msgs, notify.Message{
		To:      notify.AddressFor(officer.BM, domain),
		Subject: "Cautela registrada - " + borrower.Display(),
		Body:    b.String(),
	})
}

// returnMessages builds one notice per distinct borrower, in the order the
// borrowers first appear in records, plus one summary for the receiver.
func returnMessages(records []model.Movement, receiver model.Person, at time.Time, observations, domain string) []notify.Message {
	var order []string
	groups := make(map[string][]model.Movement)
	for _, m := range records {
		if _, ok := groups[m.BM]; !ok {
			order = append(order, m.BM)
		}
		groups[m.BM] = append(groups[m.BM], m)
	}

	when := at.Format(timestampLayout)
	msgs := make([]notify.Message, 0, len(order)+1)
	var b strings.Builder

	for _, bm := range order {
		group := groups[bm]
		borrower := group[0].Borrower()

		b.Reset()
		fmt.Fprintf(&b, "Olá, %s.\n\n", borrower.Display())
		fmt.Fprintf(&b, "Foi registrada, em %s, a devolução de %s cautelado(s) em seu nome:\n\n", when, plural(len(group)))
		writeReturnItems(&b, group, false)
		fmt.Fprintf(&b, "\nRecebido por: %s\n", identify(receiver))
		fmt.Fprintf(&b, "Observações: %s\n", observations)

		msgs = append(msgs, notify.Message{
			To:      notify.AddressFor(borrower.BM, domain),
			Subject: "Devolução de material - " + plural(len(group)),
			Body:    b.String(),
		})
	}

	b.Reset()
	fmt.Fprintf(&b, "Olá, %s.\n\n", receiver.Display())
	fmt.Fprintf(&b, "Você recebeu, em %s, %s de %d responsável(is):\n\n", when, plural(len(records)), len(order))
	writeReturnItems(&b, records, true)
	fmt.Fprintf(&b, "\nObservações: %s\n", observations)

	return append(msgs, notify.Message{
		To:      notify.AddressFor(receiver.BM, domain),
		Subject: "Recebimento de material - " + plural(len(records)),
		Body:    b.String(),
	})
}
