// Package event implements the request/reward orchestration for the NFT
// event: sign-challenge requests, the address book, the ticket ledger,
// the reward inventory and the delivery queue.
package event

import (
	"encoding/json"
	"time"
)

// RequestType identifies the flow a sign request belongs to.
type RequestType string

const (
	TypeLogin  RequestType = "LOGIN"
	TypePlay   RequestType = "PLAY"
	TypeReward RequestType = "REWARD"
)

// Status is the lifecycle state of a request. A request starts in
// StatusRequested and moves exactly once to a terminal status.
type Status int

const (
	StatusRequested Status = 0
	StatusSuccess   Status = 1
	StatusFailed    Status = -1
	StatusInvalid   Status = -2
)

// TimeLayout is the addedAt timestamp format, always UTC.
const TimeLayout = "2006-01-02 15:04:05"

// Request is a tracked sign challenge.
type Request struct {
	Type     RequestType `json:"type"`
	Message  string      `json:"message"`
	Status   Status      `json:"status"`
	Signer   string      `json:"signer"`
	SignData string      `json:"signData"`
	Extra    string      `json:"extra"`
	AddedAt  string      `json:"addedAt"`
}

// SignData is the payload the relay delivers to the callback.
type SignData struct {
	Address string `json:"address"`
	RawData string `json:"rawData"`
}

// RewardDescriptor is the one-time reward granted to a signer. NftData is
// the serialized NFT descriptor exactly as it was queued by provisioning.
type RewardDescriptor struct {
	NftData   string `json:"nftData"`
	TokenData int64  `json:"tokenData"`
	ImageURL  string `json:"imageURL"`
	Name      string `json:"name"`
	IsQueue   bool   `json:"isQueue"`
}

// Encode serializes the descriptor for the ticket ledger and the queue.
func (r RewardDescriptor) Encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// QueueEntry is a pending delivery job on the reward queue.
type QueueEntry struct {
	Address    string `json:"address"`
	RewardData string `json:"rewardData"`
}

// ResultRecord is the audit record of one completed on-chain transfer.
type ResultRecord struct {
	Address         string `json:"address"`
	TransactionHash string `json:"transactionHash"`
}

// Keys names the store keys the event components operate on.
type Keys struct {
	Request      string // hash per request, prefix + requestKey
	TicketResult string // hash signer -> reward descriptor
	RewardQueue  string // list of queue entries
	RewardResult string // sorted set of result records by timestamp
	NftData      string // hash dappNftId -> metadata json
	NftQueue     string // list per nft type, prefix + type
	TokenQueue   string // list of token amounts
	AddressBook  string // hash signer -> pubkey
}

// NftTypeCount is the number of NFT types the event distributes.
const NftTypeCount = 3

func nowUTC() string {
	return time.Now().UTC().Format(TimeLayout)
}
