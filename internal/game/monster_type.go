package game

import "fmt"

// MonsterType is the internal monster id.
type MonsterType uint32

const (
	Anjanath MonsterType = iota
	Rathalos
	Aptonoth
	Jagras
	ZorahMagdaros
	Mosswine
	Gajau
	GreatJagras
	KestodonM
	Rathian
	PinkRathian
	AzureRathalos
	Diablos
	BlackDiablos
	Kirin
	Behemoth
	KushalaDaora
	Lunastra
	Teostra
	Lavasioth
	Deviljho
	Barroth
	Uragaan
	Leshen
	Pukei
	Nergigante
	XenoJiiva
	KuluYaKu
	TzitziYaKu
	Jyuratodus
	TobiKadachi
	Paolumu
	Legiana
	GreatGirros
	Odogaron
	Radobaan
	VaalHazak
	Dodogama
	KulveTaroth
	Bazelgeuse
	Apceros
	KelbiM
	KelbiF
	Hornetaur
	Vespoid
	Mernos
	KestodonF
	Raphinos
	Shamos
	Barnos
	Girros
	AncientLeshen
	Gastodon
	Noios
	Magmacore
	Magmacore2
	Gajalaka
	SmallBarrel
	LargeBarrel
	TrainingPole
	TrainingWagon
	Tigrex
	Nargacuga
	Barioth
	SavageDeviljho
	Brachydios
	Glavenus
	AcidicGlavenus
	FulgurAnjanath
	CoralPukei
	RuinerNergigante
	ViperTobi
	NightshadePaolumu
	ShriekingLegiana
	EbonyOdogaron
	BlackveilVaal
	SeethingBazelgeuse
	Beotodus
	Banbaro
	Velkhana
	Namielle
	Shara
	Popo
	Anteka
	Wulg
	Cortos
	Boaboa
	Alatreon
	GoldRathian
	SilverRathalos
	YianGaruga
	Rajang
	FuriousRajang
	BruteTigrex
	Zinogre
	StygianZinogre
	RagingBrachy
	SafiJiiva
	Unavailable
	ScarredYianGaruga
	FrostfangBarioth
	Fatalis
)

var monsterNames = [...]string{
	Anjanath:           "Anjanath",
	Rathalos:           "Rathalos",
	Aptonoth:           "Aptonoth",
	Jagras:             "Jagras",
	ZorahMagdaros:      "ZorahMagdaros",
	Mosswine:           "Mosswine",
	Gajau:              "Gajau",
	GreatJagras:        "GreatJagras",
	KestodonM:          "KestodonM",
	Rathian:            "Rathian",
	PinkRathian:        "PinkRathian",
	AzureRathalos:      "AzureRathalos",
	Diablos:            "Diablos",
	BlackDiablos:       "BlackDiablos",
	Kirin:              "Kirin",
	Behemoth:           "Behemoth",
	KushalaDaora:       "KushalaDaora",
	Lunastra:           "Lunastra",
	Teostra:            "Teostra",
	Lavasioth:          "Lavasioth",
	Deviljho:           "Deviljho",
	Barroth:            "Barroth",
	Uragaan:            "Uragaan",
	Leshen:             "Leshen",
	Pukei:              "Pukei",
	Nergigante:         "Nergigante",
	XenoJiiva:          "XenoJiiva",
	KuluYaKu:           "KuluYaKu",
	TzitziYaKu:         "TzitziYaKu",
	Jyuratodus:         "Jyuratodus",
	TobiKadachi:        "TobiKadachi",
	Paolumu:            "Paolumu",
	Legiana:            "Legiana",
	GreatGirros:        "GreatGirros",
	Odogaron:           "Odogaron",
	Radobaan:           "Radobaan",
	VaalHazak:          "VaalHazak",
	Dodogama:           "Dodogama",
	KulveTaroth:        "KulveTaroth",
	Bazelgeuse:         "Bazelgeuse",
	Apceros:            "Apceros",
	KelbiM:             "KelbiM",
	KelbiF:             "KelbiF",
	Hornetaur:          "Hornetaur",
	Vespoid:            "Vespoid",
	Mernos:             "Mernos",
	KestodonF:          "KestodonF",
	Raphinos:           "Raphinos",
	Shamos:             "Shamos",
	Barnos:             "Barnos",
	Girros:             "Girros",
	AncientLeshen:      "AncientLeshen",
	Gastodon:           "Gastodon",
	Noios:              "Noios",
	Magmacore:          "Magmacore",
	Magmacore2:         "Magmacore2",
	Gajalaka:           "Gajalaka",
	SmallBarrel:        "SmallBarrel",
	LargeBarrel:        "LargeBarrel",
	TrainingPole:       "TrainingPole",
	TrainingWagon:      "TrainingWagon",
	Tigrex:             "Tigrex",
	Nargacuga:          "Nargacuga",
	Barioth:            "Barioth",
	SavageDeviljho:     "SavageDeviljho",
	Brachydios:         "Brachydios",
	Glavenus:           "Glavenus",
	AcidicGlavenus:     "AcidicGlavenus",
	FulgurAnjanath:     "FulgurAnjanath",
	CoralPukei:         "CoralPukei",
	RuinerNergigante:   "RuinerNergigante",
	ViperTobi:          "ViperTobi",
	NightshadePaolumu:  "NightshadePaolumu",
	ShriekingLegiana:   "ShriekingLegiana",
	EbonyOdogaron:      "EbonyOdogaron",
	BlackveilVaal:      "BlackveilVaal",
	SeethingBazelgeuse: "SeethingBazelgeuse",
	Beotodus:           "Beotodus",
	Banbaro:            "Banbaro",
	Velkhana:           "Velkhana",
	Namielle:           "Namielle",
	Shara:              "Shara",
	Popo:               "Popo",
	Anteka:             "Anteka",
	Wulg:               "Wulg",
	Cortos:             "Cortos",
	Boaboa:             "Boaboa",
	Alatreon:           "Alatreon",
	GoldRathian:        "GoldRathian",
	SilverRathalos:     "SilverRathalos",
	YianGaruga:         "YianGaruga",
	Rajang:             "Rajang",
	FuriousRajang:      "FuriousRajang",
	BruteTigrex:        "BruteTigrex",
	Zinogre:            "Zinogre",
	StygianZinogre:     "StygianZinogre",
	RagingBrachy:       "RagingBrachy",
	SafiJiiva:          "SafiJiiva",
	Unavailable:        "Unavailable",
	ScarredYianGaruga:  "ScarredYianGaruga",
	FrostfangBarioth:   "FrostfangBarioth",
	Fatalis:            "Fatalis",
}

func (t MonsterType) String() string {
	if int(t) < len(monsterNames) {
		return monsterNames[t]
	}
	return fmt.Sprintf("MonsterType(0x%x)", uint32(t))
}

// Valid reports whether t is a known id.
func (t MonsterType) Valid() bool { return int(t) < len(monsterNames) }
