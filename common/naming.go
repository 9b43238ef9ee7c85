package common

import (
	"fmt"
	"strings"
	"time"
)

// Platform is the satellite platform of an imagery product
type Platform int

const (
	UnknownPlatform Platform = iota
	Sentinel2                // MMM_MSIXXX_YYYYMMDDTHHMMSS_Nxxyy_ROOO_Txxxxx_<Product Discriminator>
	Sentinel5P               // MMM_CCCC_TTTTTTTTTT_YYYYMMDDTHHMMSS_YYYYMMDDTHHMMSS_OOOOO_CC_PPPPPP_YYYYMMDDTHHMMSS
)

func (p Platform) String() string {
	switch p {
	case Sentinel2:
		return "Sentinel-2"
	case Sentinel5P:
		return "Sentinel-5P"
	}
	return "Unknown"
}

// GetPlatformFromString returns the platform from the user input or the product name
func GetPlatformFromString(input string) Platform {
	switch strings.ToLower(input) {
	case "sentinel2", "sentinel-2":
		return Sentinel2
	case "sentinel5p", "sentinel-5p", "sentinel-5 precursor":
		return Sentinel5P
	}
	return GetPlatformFromProductId(input)
}

// GetPlatformFromProductId returns the platform from the name of the product
func GetPlatformFromProductId(productName string) Platform {
	if strings.HasPrefix(productName, "S2") {
		return Sentinel2
	}
	if strings.HasPrefix(productName, "S5P") {
		return Sentinel5P
	}
	return UnknownPlatform
}

// GetDateFromProductId returns the sensing date of the product
func GetDateFromProductId(productName string) (time.Time, error) {
	format, err := Info(productName)
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse("20060102", fmt.Sprintf("%s%s%s", format["YEAR"], format["MONTH"], format["DAY"]))
}

// Info decodes the fields of the product name
func Info(productName string) (map[string]string, error) {
	productName = strings.TrimSuffix(productName, ".SAFE")
	switch GetPlatformFromProductId(productName) {
	case Sentinel2:
		if len(productName) < len("MMM_MSIXXX_YYYYMMDDTHHMMSS_Nxxyy_ROOO_Txxxxx_YYYYMMDDTHHMMSS") || productName[10] != '_' {
			return nil, fmt.Errorf("invalid Sentinel2 product name: %s", productName)
		}
		return map[string]string{
			"SCENE":           productName,
			"MISSION_ID":      productName[0:3],
			"MISSION_VERSION": productName[2:3],
			"PRODUCT_LEVEL":   productName[7:10],
			"DATE":            productName[11:19],
			"YEAR":            productName[11:15],
			"MONTH":           productName[15:17],
			"DAY":             productName[17:19],
			"TIME":            productName[20:26],
			"HOUR":            productName[20:22],
			"MINUTE":          productName[22:24],
			"SECOND":          productName[24:26],
			"PDGS":            productName[28:32],
			"ORBIT":           productName[34:37],
			"TILE":            productName[38:44],
			"LATITUDE_BAND":   productName[39:41],
			"GRID_SQUARE":     productName[41:42],
			"GRANULE_ID":      productName[42:44],
			"PRODUCT_DISC":    productName[45:60],
		}, nil
	case Sentinel5P:
		// S5P_OFFL_L2__CH4____20230101T095421_20230101T113551_27005_03_020400_20230103T020000
		if len(productName) < len("MMM_CCCC_TTTTTTTTTT_YYYYMMDDTHHMMSS_YYYYMMDDTHHMMSS_OOOOO_CC_PPPPPP_YYYYMMDDTHHMMSS") {
			return nil, fmt.Errorf("invalid Sentinel5P product name: %s", productName)
		}
		return map[string]string{
			"SCENE":         productName,
			"MISSION_ID":    productName[0:3],
			"STREAM":        productName[4:8],
			"PRODUCT_LEVEL": productName[9:11],
			"PRODUCT_TYPE":  strings.TrimRight(productName[13:19], "_"),
			"DATE":          productName[20:28],
			"YEAR":          productName[20:24],
			"MONTH":         productName[24:26],
			"DAY":           productName[26:28],
			"TIME":          productName[29:35],
			"HOUR":          productName[29:31],
			"MINUTE":        productName[31:33],
			"SECOND":        productName[33:35],
			"ORBIT":         productName[52:57],
			"COLLECTION":    productName[58:60],
			"PROCESSOR":     productName[61:67],
		}, nil
	}
	return nil, fmt.Errorf("Info: platform not supported: %s", productName)
}

// FormatBrackets replaces in <str> all {keys} of <info> by the corresponding value
// keys are the ones returned by Info (SCENE, MISSION_ID, PRODUCT_LEVEL, DATE, YEAR, TILE...) or any user-defined key
func FormatBrackets(str string, infos ...map[string]string) string {
	for _, info := range infos {
		for k, v := range info {
			str = strings.ReplaceAll(str, "{"+k+"}", v)
		}
	}
	return str
}
