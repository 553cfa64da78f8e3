package contract

// cosignOracleABI is the view/event surface this engine reads from the host
// chain's system contract (spec.md §6): per-network session counters,
// per-(network,session) published keys, per-network allocated stake, and the
// two block-level events that drive classification. Modeled on
// core/contracts/abi.go's "hard-coded ABI JSON constant" style, trimmed to
// only what the oracle needs rather than a full genesis-contract surface.
const cosignOracleABI = `
[
  {
    "anonymous": false,
    "inputs": [{"indexed": false, "internalType": "uint8", "name": "network", "type": "uint8"}],
    "name": "KeyGen",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [{"indexed": false, "internalType": "uint8", "name": "network", "type": "uint8"}],
    "name": "BurnWithInstruction",
    "type": "event"
  },
  {
    "inputs": [{"internalType": "uint8", "name": "network", "type": "uint8"}],
    "name": "session",
    "outputs": [{"internalType": "uint32", "name": "", "type": "uint32"}],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "uint8", "name": "network", "type": "uint8"},
      {"internalType": "uint32", "name": "session", "type": "uint32"}
    ],
    "name": "keys",
    "outputs": [
      {"internalType": "bytes32", "name": "publicKey", "type": "bytes32"},
      {"internalType": "bool", "name": "published", "type": "bool"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [{"internalType": "uint8", "name": "network", "type": "uint8"}],
    "name": "totalAllocatedStake",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "view",
    "type": "function"
  }
]
`
