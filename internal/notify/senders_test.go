package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/cautela/internal/remote"
	"github.com/erazemk/cautela/internal/remote/sheettest"
)

func TestSheetSender(t *testing.T) {
	sheet := sheettest.New(t)
	client, err := remote.NewClient(sheet.Endpoint(), nil)
	require.NoError(t, err)

	s := SheetSender{Relay: client}
	require.NoError(t, s.Send(context.Background(), Message{To: "1@x.org", Subject: "Cautela", Body: "corpo"}))

	emails := sheet.Emails()
	require.Len(t, emails, 1)
	assert.Equal(t, "1@x.org", emails[0].To)
	assert.Equal(t, "Cautela", emails[0].Subject)
}

func TestSheetSenderFailure(t *testing.T) {
	sheet := sheettest.New(t)
	sheet.SetFailing(true)
	client, err := remote.NewClient(sheet.Endpoint(), nil)
	require.NoError(t, err)

	err = SheetSender{Relay: client}.Send(context.Background(), Message{To: "1@x.org"})
	assert.True(t, errors.Is(err, remote.ErrUnavailable))
}

func TestSendGridMessage(t *testing.T) {
	s := NewSendGridSender("SG.test", "Almoxarifado", "almox@example.org", true)
	m := s.build(Message{To: "1613827@example.org", Subject: "Cautela", Body: "Material: <Corda>"})

	assert.Equal(t, "Cautela", m.Subject)
	assert.Equal(t, "almox@example.org", m.From.Address)
	require.Len(t, m.Personalizations, 1)
	require.Len(t, m.Personalizations[0].To, 1)
	assert.Equal(t, "1613827@example.org", m.Personalizations[0].To[0].Address)

	require.Len(t, m.Content, 2)
	assert.Equal(t, "Material: <Corda>", m.Content[0].Value)
	assert.True(t, strings.Contains(m.Content[1].Value, "&lt;Corda&gt;"))
	require.NotNil(t, m.MailSettings)
}
