package event

import "context"

// SignURIScheme prefixes every sign URI the relay hands out. The request
// key is the URI with this prefix stripped.
const SignURIScheme = "sign://"

// Session is an opaque relay session reference.
type Session struct {
	ID string `json:"id"`
}

// FeeOptions configures the fee quote attached to a direct-sign request.
type FeeOptions struct {
	FctPrice int `json:"fctPrice"`
}

// TransferMessage is the bank-send intent a player signs in the play
// flow: a fixed-denomination payment to the event wallet.
type TransferMessage struct {
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	Denom       string `json:"denom"`
	Amount      string `json:"amount"`
}

// RelayClient brokers out-of-band signature collection and signature
// verification. The engine never inspects signatures itself.
type RelayClient interface {
	// Connect opens a relay session for the project.
	Connect(ctx context.Context, projectSecret string) (Session, error)

	// SignDoc builds the serialized sign document for the messages.
	SignDoc(ctx context.Context, signer, pubkey string, msgs []TransferMessage) (string, error)

	// QRCodeForArbitrarySign requests a free-text sign challenge and
	// returns the sign URI.
	QRCodeForArbitrarySign(ctx context.Context, session Session, message, info string) (string, error)

	// QRCodeForDirectSign requests a sign challenge over a prepared sign
	// document and returns the sign URI.
	QRCodeForDirectSign(ctx context.Context, session Session, signer, signDoc, info string, fee FeeOptions) (string, error)

	// VerifyArbitrarySignature checks a raw signature against the
	// original free-text message.
	VerifyArbitrarySignature(ctx context.Context, rawData, originalMessage string) (bool, error)

	// VerifyDirectSignature checks a signature against a sign document
	// and the expected signer address.
	VerifyDirectSignature(ctx context.Context, address, signature, signDoc string) (bool, error)

	// SignerPubkeyFromRaw extracts the signer public key from a raw
	// signature payload.
	SignerPubkeyFromRaw(rawData string) (string, error)

	// NftImageURI resolves the image URI for an on-chain NFT id.
	NftImageURI(ctx context.Context, nftID string) (string, error)
}
