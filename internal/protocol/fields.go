package protocol

// Well-known tags.
const (
	TagBeginString  = "8"
	TagBodyLength   = "9"
	TagCheckSum     = "10"
	TagClOrdID      = "11"
	TagExecID       = "17"
	TagMsgSeqNum    = "34"
	TagMsgType      = "35"
	TagOrderQty     = "38"
	TagOrdStatus    = "39"
	TagOrdType      = "40"
	TagPrice        = "44"
	TagSecurityID   = "48"
	TagSenderCompID = "49"
	TagSendingTime  = "52"
	TagSide         = "54"
	TagSymbol       = "55"
	TagTargetCompID = "56"
	TagTransactTime = "60"
	TagExecType     = "150"
	TagLeavesQty    = "151"
)

// MandatoryTags are reported when absent from any message.
var MandatoryTags = []string{TagBeginString, TagBodyLength, TagMsgType, TagCheckSum}

// DetailPriority orders the first lines of HumanDetail.
var DetailPriority = []string{
	TagBeginString,
	TagMsgType,
	TagSenderCompID,
	TagTargetCompID,
	TagMsgSeqNum,
	TagSendingTime,
	TagClOrdID,
	TagExecID,
	TagSymbol,
	TagSide,
	TagOrderQty,
	TagOrdType,
	TagPrice,
	TagOrdStatus,
	TagExecType,
	TagCheckSum,
}

var msgTypeNames = map[string]string{
	"0": "Heartbeat",
	"1": "TestRequest",
	"2": "ResendRequest",
	"3": "Reject",
	"4": "SequenceReset",
	"5": "Logout",
	"8": "ExecutionReport",
	"9": "OrderCancelReject",
	"A": "Logon",
	"D": "NewOrderSingle",
	"F": "OrderCancelRequest",
	"G": "OrderCancelReplaceRequest",
}

var sideNames = map[string]string{
	"1": "BUY",
	"2": "SELL",
	"5": "SELL SHORT",
}

// KnownMsgType reports whether code is one of the described MsgType codes.
func KnownMsgType(code string) bool {
	_, ok := msgTypeNames[code]
	return ok
}

// MsgTypeName describes a MsgType code, or returns the code unchanged.
func MsgTypeName(code string) string {
	if name, ok := msgTypeNames[code]; ok {
		return name
	}
	return code
}

// SideName describes a Side code, or returns the code unchanged.
func SideName(code string) string {
	if name, ok := sideNames[code]; ok {
		return name
	}
	return code
}
