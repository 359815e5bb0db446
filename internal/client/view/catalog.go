package view

import (
	"github.com/abgdnv/productdesk/internal/client/state"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. English text is the key itself.
const (
	msgNoProducts      = "No products found."
	msgLoading         = "Loading..."
	msgColID           = "ID"
	msgColName         = "Name"
	msgColPrice        = "Price"
	msgLoggedIn        = "Logged in as %s."
	msgLoggedOut       = "Logged out."
	msgAuthenticated   = "Authenticated."
	msgUnauthenticated = "Not authenticated."
	msgSessionExpired  = "Session expired. Please log in again."
	msgAdded           = "Added %s."
	msgDeleted         = "Deleted product %d."
	msgNameRequired    = "Name is required"
	msgPriceInvalid    = "Price must be greater than zero"
)

func init() {
	pt := language.BrazilianPortuguese
	for key, msg := range map[string]string{
		msgNoProducts:         "Nenhum produto cadastrado",
		msgLoading:            "Carregando...",
		msgColID:              "ID",
		msgColName:            "Nome",
		msgColPrice:           "Preço",
		msgLoggedIn:           "Conectado como %s.",
		msgLoggedOut:          "Sessão encerrada.",
		msgAuthenticated:      "Autenticado.",
		msgUnauthenticated:    "Não autorizado",
		msgSessionExpired:     "Sessão expirada. Entre novamente.",
		msgAdded:              "Produto %s adicionado.",
		msgDeleted:            "Produto %d excluído.",
		msgNameRequired:       "Nome é obrigatório",
		msgPriceInvalid:       "Preço deve ser maior que zero",
		state.MsgFetchFailed:  "Erro ao carregar produtos. Tente novamente.",
		state.MsgCreateFailed: "Erro ao criar produto. Tente novamente.",
		state.MsgDeleteFailed: "Erro ao excluir produto. Tente novamente.",
	} {
		if err := message.SetString(pt, key, msg); err != nil {
			panic(err)
		}
	}
}
